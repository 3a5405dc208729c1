package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/cosigner/internal/core/domain"
	"github.com/vulpemventures/cosigner/internal/core/ports"
	"github.com/vulpemventures/cosigner/pkg/metrics"
)

// TransactionService is responsible for operations related to aggregate
// bonded transactions:
//   - Announce a signed hash lock and, once confirmed, the signed aggregate
//     bonded transaction it locks funds for. Every call gets its own
//     broadcaster and its own private listener.
//   - Cosign an aggregate bonded transaction waiting in the partial cache.
//   - Get the status of a transaction.
//
// The outcome of every broadcast is published on the notification feed, if
// any.
type TransactionService struct {
	txRepo          ports.TransactionRepository
	newListener     ports.ListenerFactory
	notifier        *NotificationService
	hashLockTimeout time.Duration
	collector       *CosignatureCollector

	log  func(format string, a ...interface{})
	warn func(err error, format string, a ...interface{})
}

func NewTransactionService(
	txRepo ports.TransactionRepository, listenerFactory ports.ListenerFactory,
	notifier *NotificationService, hashLockTimeout time.Duration,
) *TransactionService {
	if hashLockTimeout <= 0 {
		hashLockTimeout = DefaultHashLockConfirmationTimeout
	}
	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("transaction service: %s", format)
		log.Debugf(format, a...)
	}
	warnFn := func(err error, format string, a ...interface{}) {
		format = fmt.Sprintf("transaction service: %s", format)
		log.WithError(err).Warnf(format, a...)
	}
	return &TransactionService{
		txRepo:          txRepo,
		newListener:     listenerFactory,
		notifier:        notifier,
		hashLockTimeout: hashLockTimeout,
		collector:       NewCosignatureCollector(txRepo),
		log:             logFn,
		warn:            warnFn,
	}
}

// AnnounceAggregateBonded blocks until the broadcast outcome is known. Only
// invalid inputs make it return an error.
func (ts *TransactionService) AnnounceAggregateBonded(
	ctx context.Context, signedLock, signedPartial domain.SignedTransaction,
) (*domain.BroadcastResult, error) {
	if ts.newListener == nil {
		return nil, domain.NewValidationError("listener", "missing listener factory")
	}
	if err := signedLock.Validate(); err != nil {
		return nil, err
	}
	if err := signedPartial.Validate(); err != nil {
		return nil, err
	}

	listener, err := ts.newListener()
	if err != nil {
		res := &domain.BroadcastResult{
			SignedPartialTransaction: signedPartial,
			Error:                    err.Error(),
			Err:                      &domain.ListenerError{Err: err},
		}
		ts.completeBroadcast(res, time.Now())
		return res, nil
	}

	broadcaster := NewAggregateBondedBroadcaster()
	ts.log(
		"broadcast %s started for aggregate bonded %s",
		broadcaster.ID(), signedPartial.Hash,
	)

	start := time.Now()
	res, err := broadcaster.Start(
		ctx, signedLock, signedPartial, ts.txRepo, listener, ts.hashLockTimeout,
	)
	if err != nil {
		// Nothing has been opened by the broadcaster.
		// nolint
		listener.Close()
		return nil, err
	}

	ts.completeBroadcast(res, start)
	return res, nil
}

// Cosign adds the cosignature of the given signer to the aggregate bonded
// transaction with the given hash.
func (ts *TransactionService) Cosign(
	ctx context.Context, transactionHash string, signer ports.CosignatureSigner,
) (*domain.CosignResult, error) {
	res, err := ts.collector.Cosign(ctx, transactionHash, signer)
	if err != nil {
		return nil, err
	}

	outcome := "success"
	switch {
	case res.Expired:
		outcome = "expired"
	case res.AlreadySigned:
		outcome = "already_signed"
	case !res.Success:
		outcome = "failure"
	}
	metrics.CosignatureCompleted(outcome)
	return res, nil
}

func (ts *TransactionService) GetTransactionStatus(
	ctx context.Context, transactionHash string,
) (*domain.TransactionStatus, error) {
	if err := domain.ValidateHash(transactionHash); err != nil {
		return nil, err
	}
	return ts.txRepo.GetTransactionStatus(ctx, strings.ToUpper(transactionHash))
}

func (ts *TransactionService) completeBroadcast(
	res *domain.BroadcastResult, start time.Time,
) {
	outcome := "success"
	switch {
	case res.IsTimeout():
		outcome = "timeout"
	case !res.Success:
		outcome = "failure"
	}
	metrics.BroadcastCompleted(outcome, time.Since(start))

	if res.Success {
		log.Infof(
			"transaction service: aggregate bonded %s announced",
			res.SignedPartialTransaction.Hash,
		)
	} else {
		ts.warn(
			res.Err, "broadcast of aggregate bonded %s failed",
			res.SignedPartialTransaction.Hash,
		)
	}

	if ts.notifier != nil {
		ts.notifier.PublishBroadcast(*res)
	}
}
