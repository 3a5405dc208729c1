package inmemory

import (
	"sync"

	"github.com/vulpemventures/cosigner/internal/core/domain"
	"github.com/vulpemventures/cosigner/internal/core/ports"
)

type repoManager struct {
	accountRepository *accountRepository

	handlers *accountEventHandlers
}

func NewRepoManager() ports.RepoManager {
	accountRepo := newAccountRepository()

	rm := &repoManager{
		accountRepository: accountRepo,
		handlers:          newAccountEventHandlers(),
	}

	go rm.listenToAccountEvents()

	return rm
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
	rm.accountRepository.close()
}

func (rm *repoManager) listenToAccountEvents() {
	for event := range rm.accountRepository.chEvents {
		rm.handlers.dispatch(event)
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
