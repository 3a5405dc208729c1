package application

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/cosigner/internal/core/domain"
	"github.com/vulpemventures/cosigner/internal/core/ports"
)

// AggregateBondedBroadcaster announces an aggregate bonded transaction with
// the two-phase protocol required by the network:
//   - announce the hash lock and wait for it to be confirmed;
//   - announce the aggregate bonded (partial) transaction.
//
// The wait is a race between the confirmed channel of the listener and a
// timer. The first branch to claim the result slot determines the outcome,
// the other one is released by finalize and can't alter the result anymore.
//
// A broadcaster serves exactly one Start call and owns the listener it's
// given: the listener is opened at start and closed on every exit path.
type AggregateBondedBroadcaster struct {
	id      string
	state   atomic.Int32
	started atomic.Bool

	once   sync.Once
	done   chan struct{}
	result *domain.BroadcastResult

	signedLock    domain.SignedTransaction
	signedPartial domain.SignedTransaction
	txRepo        ports.TransactionRepository
	listener      ports.Listener
	timer         *time.Timer
	cancelFns     []ports.CancelFn

	log  func(format string, a ...interface{})
	warn func(err error, format string, a ...interface{})
}

func NewAggregateBondedBroadcaster() *AggregateBondedBroadcaster {
	id := uuid.New().String()
	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("broadcaster %s: %s", id, format)
		log.Debugf(format, a...)
	}
	warnFn := func(err error, format string, a ...interface{}) {
		format = fmt.Sprintf("broadcaster %s: %s", id, format)
		log.WithError(err).Warnf(format, a...)
	}
	return &AggregateBondedBroadcaster{
		id:   id,
		done: make(chan struct{}),
		log:  logFn,
		warn: warnFn,
	}
}

// ID returns the identifier of the broadcast attempt.
func (b *AggregateBondedBroadcaster) ID() string {
	return b.id
}

// State returns the step reached by the broadcast.
func (b *AggregateBondedBroadcaster) State() domain.BroadcastState {
	return domain.BroadcastState(b.state.Load())
}

// Start runs the broadcast and blocks until its outcome is known.
// Only malformed inputs make it return an error, and in that case nothing
// has been opened nor announced. Any other failure is reported by the
// returned result.
func (b *AggregateBondedBroadcaster) Start(
	ctx context.Context, signedLock, signedPartial domain.SignedTransaction,
	txRepo ports.TransactionRepository, listener ports.Listener,
	timeout time.Duration,
) (*domain.BroadcastResult, error) {
	if err := validateBroadcastArgs(
		signedLock, signedPartial, txRepo, listener, timeout,
	); err != nil {
		return nil, err
	}
	// Validated above, can't fail.
	signerAddress, _ := signedLock.SignerAddress()

	if !b.started.CompareAndSwap(false, true) {
		return nil, domain.ErrBroadcasterAlreadyStarted
	}

	b.signedLock = signedLock
	b.signedPartial = signedPartial
	b.txRepo = txRepo
	b.listener = listener

	if err := listener.Open(ctx); err != nil {
		b.finalize(b.failure(&domain.ListenerError{Err: err}))
		return b.result, nil
	}

	if err := txRepo.Announce(ctx, signedLock); err != nil {
		b.finalize(b.failure(&domain.NetworkError{Op: "announce hash lock", Err: err}))
		return b.result, nil
	}
	b.state.Store(int32(domain.BroadcastLockAnnounced))
	b.log("announced hash lock %s", signedLock.Hash)

	chConfirmed, cancelConfirmed, err := listener.Confirmed(signerAddress)
	if err != nil {
		b.finalize(b.failure(&domain.ListenerError{Err: err}))
		return b.result, nil
	}
	b.cancelFns = append(b.cancelFns, cancelConfirmed)

	chStatus, cancelStatus, err := listener.Status(signerAddress)
	if err != nil {
		b.finalize(b.failure(&domain.ListenerError{Err: err}))
		return b.result, nil
	}
	b.cancelFns = append(b.cancelFns, cancelStatus)

	b.timer = time.NewTimer(timeout)
	b.state.Store(int32(domain.BroadcastRacing))

	go b.waitForConfirmation(ctx, chConfirmed, chStatus, listener.Errors())
	go b.waitForTimeout(b.timer)

	<-b.done
	return b.result, nil
}

func (b *AggregateBondedBroadcaster) waitForConfirmation(
	ctx context.Context, chConfirmed <-chan domain.TransactionInfo,
	chStatus <-chan domain.TransactionStatusError, chErrors <-chan error,
) {
	for {
		select {
		case <-b.done:
			return
		case <-ctx.Done():
			b.resolveRace(b.failure(ctx.Err()))
			return
		case err, ok := <-chErrors:
			if !ok {
				chErrors = nil
				continue
			}
			b.resolveRace(b.failure(&domain.ListenerError{Err: err}))
			return
		case status, ok := <-chStatus:
			if !ok {
				chStatus = nil
				continue
			}
			if !b.signedLock.HashEquals(status.Hash) {
				continue
			}
			b.resolveRace(b.failure(&domain.ListenerError{
				Err: fmt.Errorf("hash lock %s rejected: %s", status.Hash, status.Code),
			}))
			return
		case tx, ok := <-chConfirmed:
			if !ok {
				// A listener failing for good reports why before closing its
				// subscriptions.
				err := fmt.Errorf("confirmed subscription closed")
				select {
				case listenerErr, ok := <-chErrors:
					if ok {
						err = listenerErr
					}
				default:
				}
				b.resolveRace(b.failure(&domain.ListenerError{Err: err}))
				return
			}
			if !b.signedLock.HashEquals(tx.Hash) {
				b.log("skip confirmed transaction %s", tx.Hash)
				continue
			}
			b.announcePartial(ctx)
			return
		}
	}
}

func (b *AggregateBondedBroadcaster) announcePartial(ctx context.Context) {
	if !b.state.CompareAndSwap(
		int32(domain.BroadcastRacing), int32(domain.BroadcastPartialAnnounced),
	) {
		return
	}

	b.log("hash lock %s confirmed", b.signedLock.Hash)
	if err := b.txRepo.AnnounceAggregateBonded(ctx, b.signedPartial); err != nil {
		b.finalize(b.failure(
			&domain.NetworkError{Op: "announce aggregate bonded", Err: err},
		))
		return
	}

	b.log("announced aggregate bonded %s", b.signedPartial.Hash)
	b.finalize(domain.BroadcastResult{
		SignedPartialTransaction: b.signedPartial,
		Success:                  true,
	})
}

func (b *AggregateBondedBroadcaster) waitForTimeout(timer *time.Timer) {
	select {
	case <-b.done:
	case <-timer.C:
		b.resolveRace(b.failure(&domain.TimeoutError{Hash: b.signedLock.Hash}))
	}
}

// resolveRace finalizes the broadcast with the given result only if no other
// branch claimed the result slot yet.
func (b *AggregateBondedBroadcaster) resolveRace(res domain.BroadcastResult) {
	if !b.state.CompareAndSwap(
		int32(domain.BroadcastRacing), int32(domain.BroadcastDone),
	) {
		return
	}
	b.finalize(res)
}

// finalize releases every resource and publishes the result. Only the first
// call has effect.
func (b *AggregateBondedBroadcaster) finalize(res domain.BroadcastResult) {
	b.once.Do(func() {
		if b.timer != nil {
			b.timer.Stop()
		}
		for _, cancel := range b.cancelFns {
			cancel()
		}
		if err := b.listener.Close(); err != nil {
			b.warn(err, "failed to close listener")
		}

		b.state.Store(int32(domain.BroadcastDone))
		b.result = &res
		if !res.Success {
			b.warn(res.Err, "broadcast of %s failed", b.signedPartial.Hash)
		}
		close(b.done)
	})
}

func (b *AggregateBondedBroadcaster) failure(err error) domain.BroadcastResult {
	return domain.BroadcastResult{
		SignedPartialTransaction: b.signedPartial,
		Success:                  false,
		Error:                    err.Error(),
		Err:                      err,
	}
}

func validateBroadcastArgs(
	signedLock, signedPartial domain.SignedTransaction,
	txRepo ports.TransactionRepository, listener ports.Listener,
	timeout time.Duration,
) error {
	if err := signedLock.Validate(); err != nil {
		return err
	}
	if err := signedPartial.Validate(); err != nil {
		return err
	}
	if txRepo == nil {
		return domain.NewValidationError("repository", "missing transaction repository")
	}
	if listener == nil {
		return domain.NewValidationError("listener", "missing listener")
	}
	if timeout <= 0 {
		return domain.ErrInvalidTimeout
	}
	return nil
}
