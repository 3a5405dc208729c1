package ports

import (
	"context"

	"github.com/vulpemventures/cosigner/internal/core/domain"
)

// CancelFn has to be called to unsubscribe. It is safe to call it more than
// once.
type CancelFn func()

// SubscribeOptions customizes a subscription to the confirmed channel.
type SubscribeOptions struct {
	// MosaicID, if set, filters out any transaction not moving the mosaic.
	MosaicID string
	// Multisig, if set, extends the subscription to every multisig account
	// the address cosigns for.
	Multisig bool
}

type SubscribeOption func(*SubscribeOptions)

func WithMosaicFilter(mosaicID string) SubscribeOption {
	return func(o *SubscribeOptions) {
		o.MosaicID = mosaicID
	}
}

func WithMultisig(multisig bool) SubscribeOption {
	return func(o *SubscribeOptions) {
		o.Multisig = multisig
	}
}

// Listener is the push channel of a node. Every subscription is scoped to an
// address. Events of a given address are delivered in the order they're
// emitted by the node, and never twice, even across reconnections.
// Subscription channels are closed when the subscription is canceled or the
// listener is closed.
type Listener interface {
	// Open connects to the node. It's a no-op if already open.
	Open(ctx context.Context) error
	// Close disconnects from the node. It's a no-op if already closed.
	Close() error
	// IsOpen returns whether the listener is connected.
	IsOpen() bool

	// Status notifies about transactions of the address rejected by the node.
	Status(
		addr domain.Address,
	) (<-chan domain.TransactionStatusError, CancelFn, error)
	// Confirmed notifies about transactions of the address included in a
	// block.
	Confirmed(
		addr domain.Address, opts ...SubscribeOption,
	) (<-chan domain.TransactionInfo, CancelFn, error)
	// UnconfirmedAdded notifies about transactions of the address entering
	// the unconfirmed cache.
	UnconfirmedAdded(
		addr domain.Address,
	) (<-chan domain.TransactionInfo, CancelFn, error)
	// UnconfirmedRemoved notifies about the hashes of transactions of the
	// address leaving the unconfirmed cache.
	UnconfirmedRemoved(addr domain.Address) (<-chan string, CancelFn, error)
	// CosignatureAdded notifies about cosignatures added to aggregate bonded
	// transactions of the address.
	CosignatureAdded(
		addr domain.Address,
	) (<-chan domain.CosignatureSignedTransaction, CancelFn, error)
	// AggregateBondedAdded notifies about aggregate bonded transactions of the
	// address entering the partial cache.
	AggregateBondedAdded(
		addr domain.Address,
	) (<-chan domain.TransactionInfo, CancelFn, error)
	// AggregateBondedRemoved notifies about the hashes of aggregate bonded
	// transactions of the address leaving the partial cache.
	AggregateBondedRemoved(addr domain.Address) (<-chan string, CancelFn, error)

	// Errors notifies about connection failures. ErrConnectionFailed is sent
	// once all reconnection attempts are exhausted.
	Errors() <-chan error
}

// ListenerFactory creates a new private listener every time it's called.
type ListenerFactory func() (Listener, error)
