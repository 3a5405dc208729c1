package application

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/cosigner/internal/core/domain"
	"github.com/vulpemventures/cosigner/internal/core/ports"
	"github.com/vulpemventures/cosigner/pkg/metrics"
)

const feedBufferSize = 100

// NotificationService has the very simple task of making the push channels
// of the node accessible by external clients so that they can get real-time
// updates about the watched accounts and about the outcome of the
// broadcasts started by the TransactionService.
//
// The service owns a single listener shared by every watched account. It
// never touches the private listeners owned by broadcasters.
type NotificationService struct {
	newListener ports.ListenerFactory

	lock     *sync.Mutex
	listener ports.Listener
	watched  map[domain.Address][]ports.CancelFn

	chEvents     chan domain.NodeEvent
	chBroadcasts chan domain.BroadcastResult
	closed       bool

	log  func(format string, a ...interface{})
	warn func(err error, format string, a ...interface{})
}

func NewNotificationService(
	listenerFactory ports.ListenerFactory,
) *NotificationService {
	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("notification service: %s", format)
		log.Debugf(format, a...)
	}
	warnFn := func(err error, format string, a ...interface{}) {
		format = fmt.Sprintf("notification service: %s", format)
		log.WithError(err).Warnf(format, a...)
	}
	return &NotificationService{
		newListener:  listenerFactory,
		lock:         &sync.Mutex{},
		watched:      make(map[domain.Address][]ports.CancelFn),
		chEvents:     make(chan domain.NodeEvent, feedBufferSize),
		chBroadcasts: make(chan domain.BroadcastResult, feedBufferSize),
		log:          logFn,
		warn:         warnFn,
	}
}

func (ns *NotificationService) GetEventChannel() <-chan domain.NodeEvent {
	return ns.chEvents
}

func (ns *NotificationService) GetBroadcastChannel() <-chan domain.BroadcastResult {
	return ns.chBroadcasts
}

// WatchAccount subscribes to the confirmed, partial, cosignature and status
// channels of the given address. Watching an already watched address is a
// no-op.
func (ns *NotificationService) WatchAccount(
	ctx context.Context, address string,
) error {
	addr, err := domain.ParseAddress(address)
	if err != nil {
		return err
	}

	ns.lock.Lock()
	defer ns.lock.Unlock()

	if ns.closed {
		return fmt.Errorf("notification service is closed")
	}
	if _, ok := ns.watched[addr]; ok {
		return nil
	}

	listener, err := ns.getListener(ctx)
	if err != nil {
		return err
	}

	cancelFns := make([]ports.CancelFn, 0, 4)
	cancelAll := func() {
		for _, cancel := range cancelFns {
			cancel()
		}
	}

	chConfirmed, cancel, err := listener.Confirmed(addr)
	if err != nil {
		return err
	}
	cancelFns = append(cancelFns, cancel)

	chPartial, cancel, err := listener.AggregateBondedAdded(addr)
	if err != nil {
		cancelAll()
		return err
	}
	cancelFns = append(cancelFns, cancel)

	chCosignature, cancel, err := listener.CosignatureAdded(addr)
	if err != nil {
		cancelAll()
		return err
	}
	cancelFns = append(cancelFns, cancel)

	chStatus, cancel, err := listener.Status(addr)
	if err != nil {
		cancelAll()
		return err
	}
	cancelFns = append(cancelFns, cancel)

	go forward(ns, chConfirmed, func(tx domain.TransactionInfo) domain.NodeEvent {
		return domain.NodeEvent{
			Topic: domain.TopicConfirmedAdded, Address: addr, Hash: tx.Hash,
			Transaction: &tx,
		}
	})
	go forward(ns, chPartial, func(tx domain.TransactionInfo) domain.NodeEvent {
		return domain.NodeEvent{
			Topic: domain.TopicPartialAdded, Address: addr, Hash: tx.Hash,
			Transaction: &tx,
		}
	})
	go forward(ns, chCosignature, func(
		c domain.CosignatureSignedTransaction,
	) domain.NodeEvent {
		return domain.NodeEvent{
			Topic: domain.TopicCosignature, Address: addr, Hash: c.ParentHash,
			Cosignature: &c,
		}
	})
	go forward(ns, chStatus, func(s domain.TransactionStatusError) domain.NodeEvent {
		return domain.NodeEvent{
			Topic: domain.TopicStatus, Address: addr, Hash: s.Hash,
			StatusError: &s,
		}
	})

	ns.watched[addr] = cancelFns
	metrics.WatchedAccountsInc()
	ns.log("watching account %s", addr)
	return nil
}

func (ns *NotificationService) StopWatchingAccount(address string) error {
	addr, err := domain.ParseAddress(address)
	if err != nil {
		return err
	}

	ns.lock.Lock()
	defer ns.lock.Unlock()

	cancelFns, ok := ns.watched[addr]
	if !ok {
		return nil
	}
	for _, cancel := range cancelFns {
		cancel()
	}
	delete(ns.watched, addr)
	metrics.WatchedAccountsDec()
	ns.log("stopped watching account %s", addr)
	return nil
}

// WatchedAccounts returns the addresses currently watched.
func (ns *NotificationService) WatchedAccounts() domain.Addresses {
	ns.lock.Lock()
	defer ns.lock.Unlock()

	addresses := make(domain.Addresses, 0, len(ns.watched))
	for addr := range ns.watched {
		addresses = append(addresses, addr)
	}
	return addresses
}

// PublishBroadcast makes the outcome of a broadcast available on the feed.
// The result is dropped if nobody is consuming the feed.
func (ns *NotificationService) PublishBroadcast(res domain.BroadcastResult) {
	ns.lock.Lock()
	defer ns.lock.Unlock()

	if ns.closed {
		return
	}
	select {
	case ns.chBroadcasts <- res:
	default:
		ns.log(
			"broadcast feed full, dropped result of %s",
			res.SignedPartialTransaction.Hash,
		)
	}
}

// Close stops watching every account and closes the shared listener and the
// feed channels.
func (ns *NotificationService) Close() {
	ns.lock.Lock()
	defer ns.lock.Unlock()

	if ns.closed {
		return
	}
	ns.closed = true

	for addr, cancelFns := range ns.watched {
		for _, cancel := range cancelFns {
			cancel()
		}
		delete(ns.watched, addr)
		metrics.WatchedAccountsDec()
	}
	if ns.listener != nil {
		if err := ns.listener.Close(); err != nil {
			ns.warn(err, "failed to close listener")
		}
		ns.listener = nil
	}
	close(ns.chEvents)
	close(ns.chBroadcasts)
}

func (ns *NotificationService) publish(event domain.NodeEvent) {
	ns.lock.Lock()
	defer ns.lock.Unlock()

	if ns.closed {
		return
	}
	select {
	case ns.chEvents <- event:
	default:
		ns.log("event feed full, dropped %s event %s", event.Topic, event.Hash)
	}
}

// getListener must be called with the lock held.
func (ns *NotificationService) getListener(
	ctx context.Context,
) (ports.Listener, error) {
	if ns.listener != nil {
		return ns.listener, nil
	}
	if ns.newListener == nil {
		return nil, fmt.Errorf("missing listener factory")
	}

	listener, err := ns.newListener()
	if err != nil {
		return nil, err
	}
	if err := listener.Open(ctx); err != nil {
		return nil, &domain.ListenerError{Err: err}
	}
	go ns.listenForErrors(listener)

	ns.listener = listener
	return listener, nil
}

func (ns *NotificationService) listenForErrors(listener ports.Listener) {
	for err := range listener.Errors() {
		ns.warn(err, "listener error")
	}
}

func forward[T any](
	ns *NotificationService, ch <-chan T, toEvent func(T) domain.NodeEvent,
) {
	for v := range ch {
		ns.publish(toEvent(v))
	}
}
