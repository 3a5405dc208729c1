package application

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/cosigner/internal/core/domain"
	"github.com/vulpemventures/cosigner/internal/core/ports"
)

// CosignatureCollector adds the cosignature of the local account to an
// aggregate bonded transaction waiting in the partial cache of the network.
// Like the broadcaster, it reports a single outcome and never returns an
// error for failures occurring after the input has been validated.
type CosignatureCollector struct {
	txRepo ports.TransactionRepository

	log  func(format string, a ...interface{})
	warn func(err error, format string, a ...interface{})
}

func NewCosignatureCollector(
	txRepo ports.TransactionRepository,
) *CosignatureCollector {
	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("cosignature collector: %s", format)
		log.Debugf(format, a...)
	}
	warnFn := func(err error, format string, a ...interface{}) {
		format = fmt.Sprintf("cosignature collector: %s", format)
		log.WithError(err).Warnf(format, a...)
	}
	return &CosignatureCollector{txRepo, logFn, warnFn}
}

func (c *CosignatureCollector) Cosign(
	ctx context.Context, transactionHash string,
	signer ports.CosignatureSigner,
) (*domain.CosignResult, error) {
	if err := domain.ValidateHash(transactionHash); err != nil {
		return nil, err
	}
	if signer == nil {
		return nil, domain.ErrMissingSigner
	}
	hash := strings.ToUpper(transactionHash)

	status, err := c.txRepo.GetTransactionStatus(ctx, hash)
	if err != nil {
		return c.failure(hash, &domain.NetworkError{
			Op: "get transaction status", Err: err,
		}), nil
	}
	if status.IsFailed() {
		c.log("transaction %s expired with code %s", hash, status.Code)
		res := c.failure(hash, fmt.Errorf("transaction expired: %s", status.Code))
		res.Expired = true
		return res, nil
	}

	tx, err := c.txRepo.GetPartialTransaction(ctx, hash)
	if err != nil {
		return c.failure(hash, &domain.NetworkError{
			Op: "get partial transaction", Err: err,
		}), nil
	}

	if tx.HasSigner(signer.PublicKey()) {
		c.log("transaction %s already signed by %s", hash, signer.PublicKey())
		return &domain.CosignResult{
			TransactionHash: hash,
			Success:         true,
			AlreadySigned:   true,
		}, nil
	}

	cosignature, err := signer.SignCosignature(ctx, *tx)
	if err != nil {
		return c.failure(hash, fmt.Errorf("failed to sign cosignature: %w", err)), nil
	}

	if err := c.txRepo.AnnounceAggregateBondedCosignature(
		ctx, *cosignature,
	); err != nil {
		return c.failure(hash, &domain.NetworkError{
			Op: "announce cosignature", Err: err,
		}), nil
	}

	c.log("announced cosignature for transaction %s", hash)
	return &domain.CosignResult{
		TransactionHash: hash,
		Success:         true,
	}, nil
}

func (c *CosignatureCollector) failure(
	hash string, err error,
) *domain.CosignResult {
	c.warn(err, "failed to cosign transaction %s", hash)
	return &domain.CosignResult{
		TransactionHash: hash,
		Error:           err.Error(),
		Err:             err,
	}
}
