package ports

import (
	"github.com/vulpemventures/cosigner/internal/core/domain"
)

type AccountEventHandler func(event domain.AccountEvent)

// RepoManager is the abstraction for any kind of service intended to manage
// domain repositories implementations of the same concrete type.
type RepoManager interface {
	// AccountRepository returns the address book repository.
	AccountRepository() domain.AccountRepository

	// RegisterHandlerForAccountEvent registers an handler function, executed
	// whenever the given event type occurs.
	RegisterHandlerForAccountEvent(
		eventType domain.AccountEventType, handler AccountEventHandler,
	)

	// Reset brings all the repos to their initial state by deleting any persisted data.
	Reset()

	// Close closes the connection with all concrete repositories
	// implementations.
	Close()
}
