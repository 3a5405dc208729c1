package dbbadger

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold/v4"
	"github.com/vulpemventures/cosigner/internal/core/domain"
	"github.com/vulpemventures/cosigner/internal/core/ports"
)

const (
	valueLogGCInterval     = 30 * time.Minute
	valueLogGCDiscardRatio = 0.5
)

// repoManager owns the badgerhold store of the address book and dispatches
// its events to the registered handlers.
type repoManager struct {
	accountRepository *accountRepository
	handlers          *accountEventHandlers

	stopGC func()
}

// NewRepoManager opens the address book db under baseDbDir. An empty dir
// opens an in-memory db, meant for tests only.
func NewRepoManager(baseDbDir string, logger badger.Logger) (ports.RepoManager, error) {
	var accountDir string
	if len(baseDbDir) > 0 {
		accountDir = filepath.Join(baseDbDir, "accounts")
	}

	accountDb, err := openStore(accountDir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening account db: %w", err)
	}

	rm := &repoManager{
		accountRepository: newAccountRepository(accountDb),
		handlers:          newAccountEventHandlers(),
		stopGC:            func() {},
	}
	if len(accountDir) > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		rm.stopGC = cancel
		go runValueLogGC(ctx, accountDb)
	}

	go rm.listenToAccountEvents()

	return rm, nil
}

func (rm *repoManager) AccountRepository() domain.AccountRepository {
	return rm.accountRepository
}

func (rm *repoManager) RegisterHandlerForAccountEvent(
	eventType domain.AccountEventType, handler ports.AccountEventHandler,
) {
	rm.handlers.add(eventType, handler)
}

func (rm *repoManager) Reset() {
	rm.accountRepository.reset()
}

func (rm *repoManager) Close() {
	rm.stopGC()
	rm.accountRepository.close()
}

func (rm *repoManager) listenToAccountEvents() {
	for event := range rm.accountRepository.chEvents {
		rm.handlers.dispatch(event)
	}
}

func openStore(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger
	if len(dbDir) <= 0 {
		opts.InMemory = true
	} else {
		opts.Compression = options.ZSTD
	}

	return badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
}

func runValueLogGC(ctx context.Context, store *badgerhold.Store) {
	ticker := time.NewTicker(valueLogGCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			err := store.Badger().RunValueLogGC(valueLogGCDiscardRatio)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				log.WithError(err).Warn("account repository: value log gc failed")
			}
		case <-ctx.Done():
			return
		}
	}
}

// accountEventHandlers guards the handlers registered for every account
// event type.
type accountEventHandlers struct {
	lock     *sync.RWMutex
	handlers map[domain.AccountEventType][]ports.AccountEventHandler
}

func newAccountEventHandlers() *accountEventHandlers {
	return &accountEventHandlers{
		lock:     &sync.RWMutex{},
		handlers: make(map[domain.AccountEventType][]ports.AccountEventHandler),
	}
}

func (h *accountEventHandlers) add(
	eventType domain.AccountEventType, handler ports.AccountEventHandler,
) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.handlers[eventType] = append(h.handlers[eventType], handler)
}

// dispatch runs every handler of the event type in its own goroutine.
func (h *accountEventHandlers) dispatch(event domain.AccountEvent) {
	h.lock.RLock()
	handlers := h.handlers[event.EventType]
	h.lock.RUnlock()

	for _, handler := range handlers {
		go handler(event)
	}
}
