package websocket_listener

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	cache "github.com/Code-Hex/go-generics-cache"
	"github.com/Code-Hex/go-generics-cache/policy/lru"
	"github.com/google/uuid"
	"github.com/vulpemventures/cosigner/internal/core/domain"
	"github.com/vulpemventures/cosigner/internal/core/ports"
	"github.com/vulpemventures/cosigner/internal/infrastructure/node/dto"
)

const (
	subscriberBufferSize = 20
	subscriberSeenSize   = 100
	multisigFetchTimeout = 10 * time.Second
)

// subscriber is a local consumer of one or more node channels. Delivery
// blocks until the consumer reads the message or the subscription is
// canceled, so that ordering is preserved. A subscriber spanning more than
// one channel receives a message only once, even if it's pushed on several of
// them.
type subscriber struct {
	id       string
	deliver  func(data json.RawMessage)
	closeOut func()
	stop     chan struct{}
	stopOnce *sync.Once
	lock     *sync.Mutex
	closed   bool
	seen     *cache.Cache[string, struct{}]
}

func newSubscriber[T any](
	convert func(data json.RawMessage) (T, bool), multiPath bool,
) (*subscriber, <-chan T) {
	out := make(chan T, subscriberBufferSize)
	s := &subscriber{
		id:       uuid.New().String(),
		stop:     make(chan struct{}),
		stopOnce: &sync.Once{},
		lock:     &sync.Mutex{},
	}
	if multiPath {
		s.seen = cache.New(
			cache.AsLRU[string, struct{}](lru.WithCapacity(subscriberSeenSize)),
		)
	}
	s.deliver = func(data json.RawMessage) {
		v, ok := convert(data)
		if !ok {
			return
		}
		var id string
		if s.seen != nil {
			id = messageID(data)
		}

		s.lock.Lock()
		defer s.lock.Unlock()

		if s.closed {
			return
		}
		if id != "" {
			if _, seen := s.seen.Get(id); seen {
				return
			}
			s.seen.Set(id, struct{}{})
		}
		select {
		case out <- v:
		case <-s.stop:
		}
	}
	s.closeOut = func() {
		close(out)
	}
	return s, out
}

func (s *subscriber) close() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})

	s.lock.Lock()
	defer s.lock.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.closeOut()
}

// channel is a node channel with its local subscribers.
type channel struct {
	path        string
	lock        *sync.RWMutex
	subscribers map[string]*subscriber
}

func newChannel(path string) *channel {
	return &channel{
		path:        path,
		lock:        &sync.RWMutex{},
		subscribers: make(map[string]*subscriber),
	}
}

func (c *channel) add(s *subscriber) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.subscribers[s.id] = s
}

// remove returns whether the channel has no subscribers left.
func (c *channel) remove(id string) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	delete(c.subscribers, id)
	return len(c.subscribers) == 0
}

func (c *channel) deliver(data json.RawMessage) {
	c.lock.RLock()
	subscribers := make([]*subscriber, 0, len(c.subscribers))
	for _, s := range c.subscribers {
		subscribers = append(subscribers, s)
	}
	c.lock.RUnlock()

	for _, s := range subscribers {
		s.deliver(data)
	}
}

func (c *channel) close() {
	c.lock.Lock()
	defer c.lock.Unlock()

	for id, s := range c.subscribers {
		s.close()
		delete(c.subscribers, id)
	}
}

func (l *listener) Status(
	addr domain.Address,
) (<-chan domain.TransactionStatusError, ports.CancelFn, error) {
	paths := []string{channelPath(domain.TopicStatus, addr)}
	return subscribe(l, paths, func(
		data json.RawMessage,
	) (domain.TransactionStatusError, bool) {
		var status dto.TransactionStatus
		if err := json.Unmarshal(data, &status); err != nil {
			l.warn(err, "failed to parse status message")
			return domain.TransactionStatusError{}, false
		}
		res := status.ToStatusError()
		if res.Address.IsZero() {
			res.Address = addr
		}
		return res, true
	})
}

func (l *listener) Confirmed(
	addr domain.Address, opts ...ports.SubscribeOption,
) (<-chan domain.TransactionInfo, ports.CancelFn, error) {
	options := &ports.SubscribeOptions{}
	for _, opt := range opts {
		opt(options)
	}

	addresses := domain.Addresses{addr}
	if options.Multisig {
		multisigs, err := l.multisigAddresses(addr)
		if err != nil {
			return nil, nil, err
		}
		for _, a := range multisigs {
			if !addresses.Contains(a) {
				addresses = append(addresses, a)
			}
		}
	}

	paths := make([]string, 0, len(addresses))
	for _, a := range addresses {
		paths = append(paths, channelPath(domain.TopicConfirmedAdded, a))
	}

	return subscribe(l, paths, func(
		data json.RawMessage,
	) (domain.TransactionInfo, bool) {
		tx, ok := l.parseTransaction(data)
		if !ok {
			return domain.TransactionInfo{}, false
		}
		if options.MosaicID != "" && !tx.HasMosaic(options.MosaicID) {
			return domain.TransactionInfo{}, false
		}
		return tx, true
	})
}

func (l *listener) UnconfirmedAdded(
	addr domain.Address,
) (<-chan domain.TransactionInfo, ports.CancelFn, error) {
	paths := []string{channelPath(domain.TopicUnconfirmedAdded, addr)}
	return subscribe(l, paths, l.parseTransaction)
}

func (l *listener) UnconfirmedRemoved(
	addr domain.Address,
) (<-chan string, ports.CancelFn, error) {
	paths := []string{channelPath(domain.TopicUnconfirmedRemoved, addr)}
	return subscribe(l, paths, l.parseRemoved)
}

func (l *listener) CosignatureAdded(
	addr domain.Address,
) (<-chan domain.CosignatureSignedTransaction, ports.CancelFn, error) {
	paths := []string{channelPath(domain.TopicCosignature, addr)}
	return subscribe(l, paths, func(
		data json.RawMessage,
	) (domain.CosignatureSignedTransaction, bool) {
		var cosignature dto.Cosignature
		if err := json.Unmarshal(data, &cosignature); err != nil {
			l.warn(err, "failed to parse cosignature message")
			return domain.CosignatureSignedTransaction{}, false
		}
		return cosignature.ToDomain(), true
	})
}

func (l *listener) AggregateBondedAdded(
	addr domain.Address,
) (<-chan domain.TransactionInfo, ports.CancelFn, error) {
	paths := []string{channelPath(domain.TopicPartialAdded, addr)}
	return subscribe(l, paths, l.parseTransaction)
}

func (l *listener) AggregateBondedRemoved(
	addr domain.Address,
) (<-chan string, ports.CancelFn, error) {
	paths := []string{channelPath(domain.TopicPartialRemoved, addr)}
	return subscribe(l, paths, l.parseRemoved)
}

func (l *listener) parseTransaction(
	data json.RawMessage,
) (domain.TransactionInfo, bool) {
	var tx dto.Transaction
	if err := json.Unmarshal(data, &tx); err != nil {
		l.warn(err, "failed to parse transaction message")
		return domain.TransactionInfo{}, false
	}
	info, err := tx.ToDomain()
	if err != nil {
		l.warn(err, "failed to parse transaction message")
		return domain.TransactionInfo{}, false
	}
	return *info, true
}

func (l *listener) parseRemoved(data json.RawMessage) (string, bool) {
	var msg removedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		l.warn(err, "failed to parse removed message")
		return "", false
	}
	return strings.ToUpper(msg.Meta.Hash), msg.Meta.Hash != ""
}

func (l *listener) multisigAddresses(
	addr domain.Address,
) (domain.Addresses, error) {
	if l.opts.MultisigRepo == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(l.ctx, multisigFetchTimeout)
	defer cancel()

	info, err := l.opts.MultisigRepo.GetMultisigAccountInfo(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to fetch multisig accounts of %s: %w", addr, err,
		)
	}
	if info == nil {
		return nil, nil
	}
	return info.MultisigAddresses, nil
}

// subscribe registers a new subscriber to the given channels and subscribes
// the node to those not subscribed yet.
// Subscribe and unsubscribe frames are written while holding the channel
// entry, so that the frames of a path always reach the node in order.
func subscribe[T any](
	l *listener, paths []string, convert func(data json.RawMessage) (T, bool),
) (<-chan T, ports.CancelFn, error) {
	if !l.open.Load() {
		return nil, nil, fmt.Errorf("listener is not open")
	}

	s, out := newSubscriber(convert, len(paths) > 1)
	subscribed := make([]string, 0, len(paths))
	cancel := func() {
		l.unsubscribe(subscribed, s)
	}

	for _, path := range paths {
		var err error
		l.channels.Compute(path, func(ch *channel, loaded bool) (*channel, bool) {
			if loaded {
				ch.add(s)
				return ch, false
			}
			if err = l.sendSubscribe(path); err != nil {
				return nil, true
			}
			ch = newChannel(path)
			ch.add(s)
			l.log("subscribed to %s", path)
			return ch, false
		})
		if err != nil {
			cancel()
			return nil, nil, fmt.Errorf("failed to subscribe to %s: %w", path, err)
		}
		subscribed = append(subscribed, path)
	}

	return out, cancel, nil
}

func (l *listener) unsubscribe(paths []string, s *subscriber) {
	for _, path := range paths {
		l.channels.Compute(path, func(ch *channel, loaded bool) (*channel, bool) {
			if !loaded {
				return ch, true
			}
			if !ch.remove(s.id) {
				return ch, false
			}
			if l.open.Load() {
				if err := l.sendUnsubscribe(path); err != nil {
					l.warn(err, "failed to unsubscribe from %s", path)
				} else {
					l.log("unsubscribed from %s", path)
				}
			}
			return ch, true
		})
	}
	s.close()
}
