package websocket_listener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	cache "github.com/Code-Hex/go-generics-cache"
	"github.com/Code-Hex/go-generics-cache/policy/lru"
	"github.com/avast/retry-go"
	"github.com/gorilla/websocket"
	"github.com/puzpuzpuz/xsync/v2"
	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/cosigner/internal/core/domain"
	"github.com/vulpemventures/cosigner/internal/core/ports"
	"github.com/vulpemventures/cosigner/pkg/metrics"
)

const (
	DefaultReconnectAttempts = 3
	DefaultReconnectDelay    = 5 * time.Second
	DefaultDedupCacheSize    = 1000

	handshakeTimeout = 10 * time.Second
	writeTimeout     = 5 * time.Second
	errorsBufferSize = 10
)

var ErrListenerClosed = errors.New("listener is closed")

type Options struct {
	// URL is the websocket endpoint of the node, ie. ws(s)://host:port/ws.
	URL               string
	ReconnectAttempts uint
	ReconnectDelay    time.Duration
	DedupCacheSize    int
	// MultisigRepo, if set, is used to extend confirmed subscriptions made
	// with ports.WithMultisig to the multisig accounts of the address.
	MultisigRepo ports.MultisigRepository
}

func (o Options) validate() error {
	if o.URL == "" {
		return fmt.Errorf("missing listener url")
	}
	u, err := url.Parse(o.URL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return fmt.Errorf("invalid listener url %s", o.URL)
	}
	return nil
}

// listener implements ports.Listener on top of the websocket channel of a
// node. Subscriptions are multiplexed: the node is subscribed to a channel
// once, whatever the number of local subscribers, and every channel is
// subscribed again after a reconnection.
type listener struct {
	opts   Options
	dialer *websocket.Dialer

	connLock  *sync.RWMutex
	writeLock *sync.Mutex
	conn      *websocket.Conn
	uid       string

	channels *xsync.MapOf[string, *channel]
	seen     *cache.Cache[string, struct{}]
	chErrors chan error

	open       atomic.Bool
	closed     atomic.Bool
	closeOnce  sync.Once
	ctx        context.Context
	cancel     context.CancelFunc
	readLoopWg *sync.WaitGroup

	log  func(format string, a ...interface{})
	warn func(err error, format string, a ...interface{})
}

func NewListener(opts Options) (ports.Listener, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.ReconnectAttempts == 0 {
		opts.ReconnectAttempts = DefaultReconnectAttempts
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.DedupCacheSize <= 0 {
		opts.DedupCacheSize = DefaultDedupCacheSize
	}

	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("listener: %s", format)
		log.Debugf(format, a...)
	}
	warnFn := func(err error, format string, a ...interface{}) {
		format = fmt.Sprintf("listener: %s", format)
		log.WithError(err).Warnf(format, a...)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &listener{
		opts:       opts,
		dialer:     &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
		connLock:   &sync.RWMutex{},
		writeLock:  &sync.Mutex{},
		channels:   xsync.NewMapOf[*channel](),
		seen:       cache.New(cache.AsLRU[string, struct{}](lru.WithCapacity(opts.DedupCacheSize))),
		chErrors:   make(chan error, errorsBufferSize),
		ctx:        ctx,
		cancel:     cancel,
		readLoopWg: &sync.WaitGroup{},
		log:        logFn,
		warn:       warnFn,
	}, nil
}

// NewListenerFactory returns a factory creating a new private listener with
// the given options at every call.
func NewListenerFactory(opts Options) ports.ListenerFactory {
	return func() (ports.Listener, error) {
		return NewListener(opts)
	}
}

func (l *listener) Open(ctx context.Context) error {
	if l.closed.Load() {
		return ErrListenerClosed
	}
	if l.open.Load() {
		return nil
	}

	l.connLock.Lock()
	defer l.connLock.Unlock()

	if l.open.Load() {
		return nil
	}

	conn, uid, err := l.connect(ctx)
	if err != nil {
		return err
	}
	l.conn = conn
	l.uid = uid
	l.open.Store(true)

	l.readLoopWg.Add(1)
	go l.listen(conn)

	l.log("connected to %s with uid %s", l.opts.URL, uid)
	return nil
}

// Close sends a normal closure frame to the node, so that it's not mistaken
// for a connection failure, and releases every subscription.
func (l *listener) Close() error {
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		l.cancel()

		l.connLock.RLock()
		conn := l.conn
		l.connLock.RUnlock()

		if conn != nil {
			l.writeLock.Lock()
			// nolint
			conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeTimeout),
			)
			l.writeLock.Unlock()
			// nolint
			conn.Close()
		}

		l.readLoopWg.Wait()
		l.open.Store(false)
		l.closeChannels()
		close(l.chErrors)
		l.log("closed")
	})
	return nil
}

func (l *listener) IsOpen() bool {
	return l.open.Load()
}

func (l *listener) Errors() <-chan error {
	return l.chErrors
}

func (l *listener) connect(
	ctx context.Context,
) (*websocket.Conn, string, error) {
	conn, _, err := l.dialer.DialContext(ctx, l.opts.URL, nil)
	if err != nil {
		return nil, "", err
	}

	// nolint
	conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	var msg uidMessage
	if err := conn.ReadJSON(&msg); err != nil {
		// nolint
		conn.Close()
		return nil, "", fmt.Errorf("failed to read uid: %w", err)
	}
	if msg.UID == "" {
		// nolint
		conn.Close()
		return nil, "", fmt.Errorf("node did not send any uid")
	}
	// nolint
	conn.SetReadDeadline(time.Time{})

	return conn, msg.UID, nil
}

func (l *listener) listen(conn *websocket.Conn) {
	defer l.readLoopWg.Done()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if l.closed.Load() {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				l.log("connection closed by node")
				l.fail(fmt.Errorf("connection closed by node"))
				return
			}

			l.warn(err, "connection dropped, reconnecting")
			newConn, err := l.reconnect()
			if err != nil {
				if l.closed.Load() {
					return
				}
				l.warn(err, "reconnection failed")
				l.fail(domain.ErrConnectionFailed)
				return
			}
			conn = newConn
			continue
		}

		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			l.warn(err, "failed to parse message")
			continue
		}
		if msg.Topic == "" {
			continue
		}
		l.dispatch(msg)
	}
}

// reconnect dials the node again with the configured policy and subscribes
// again to every channel with at least one subscriber.
func (l *listener) reconnect() (*websocket.Conn, error) {
	var conn *websocket.Conn
	var uid string

	err := retry.Do(
		func() error {
			var err error
			conn, uid, err = l.connect(l.ctx)
			return err
		},
		retry.Context(l.ctx),
		retry.Attempts(l.opts.ReconnectAttempts),
		retry.Delay(l.opts.ReconnectDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			metrics.ListenerReconnect("failure")
			l.log("reconnection attempt %d failed: %s", n+1, err)
		}),
	)
	if err != nil {
		return nil, err
	}

	l.connLock.Lock()
	old := l.conn
	l.conn = conn
	l.uid = uid
	l.connLock.Unlock()
	if old != nil {
		// nolint
		old.Close()
	}
	if l.closed.Load() {
		// nolint
		conn.Close()
		return nil, ErrListenerClosed
	}

	metrics.ListenerReconnect("success")
	l.log("reconnected to %s with uid %s", l.opts.URL, uid)

	l.channels.Range(func(path string, _ *channel) bool {
		if err := l.sendSubscribe(path); err != nil {
			l.warn(err, "failed to subscribe again to %s", path)
		}
		return true
	})
	return conn, nil
}

// fail reports the error to the consumer and closes every subscription,
// the listener is not usable anymore.
func (l *listener) fail(err error) {
	l.open.Store(false)
	select {
	case l.chErrors <- err:
	default:
	}
	l.closeChannels()
}

func (l *listener) dispatch(msg message) {
	metrics.ListenerMessage(topicName(msg.Topic))

	ch, ok := l.channels.Load(msg.Topic)
	if !ok {
		return
	}

	if key := dedupKey(msg.Topic, msg.Data); key != "" {
		if _, seen := l.seen.Get(key); seen {
			l.log("skip already delivered message on %s", msg.Topic)
			return
		}
		l.seen.Set(key, struct{}{})
	}

	ch.deliver(msg.Data)
}

func (l *listener) sendSubscribe(path string) error {
	l.connLock.RLock()
	conn, uid := l.conn, l.uid
	l.connLock.RUnlock()

	return l.write(conn, subscribeRequest{UID: uid, Subscribe: path})
}

func (l *listener) sendUnsubscribe(path string) error {
	l.connLock.RLock()
	conn, uid := l.conn, l.uid
	l.connLock.RUnlock()

	return l.write(conn, subscribeRequest{UID: uid, Unsubscribe: path})
}

func (l *listener) write(conn *websocket.Conn, req subscribeRequest) error {
	if conn == nil {
		return fmt.Errorf("listener is not open")
	}

	l.writeLock.Lock()
	defer l.writeLock.Unlock()

	// nolint
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(req)
}

func (l *listener) closeChannels() {
	l.channels.Range(func(path string, ch *channel) bool {
		ch.close()
		l.channels.Delete(path)
		return true
	})
}

func topicName(path string) string {
	name, _, _ := strings.Cut(path, "/")
	return name
}
