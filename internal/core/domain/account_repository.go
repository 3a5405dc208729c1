package domain

import "context"

const (
	AccountAdded AccountEventType = iota
	AccountDeleted
)

var (
	accountTypeString = map[AccountEventType]string{
		AccountAdded:   "AccountAdded",
		AccountDeleted: "AccountDeleted",
	}
)

type AccountEventType int

func (t AccountEventType) String() string {
	return accountTypeString[t]
}

// AccountEvent holds info about an event occured within the repository.
type AccountEvent struct {
	EventType AccountEventType
	Account   Account
}

// AccountRepository is the abstraction for any kind of database intended to
// persist the address book.
type AccountRepository interface {
	// AddAccount persists the given account by preventing duplicates.
	// Generates an AccountAdded event if successful.
	AddAccount(ctx context.Context, account Account) (bool, error)
	// GetAccount returns the account identified by the given address.
	GetAccount(ctx context.Context, addr Address) (*Account, error)
	// GetAllAccounts returns all the persisted accounts sorted by name.
	GetAllAccounts(ctx context.Context) ([]Account, error)
	// DeleteAccount removes the account identified by the given address.
	// Generates an AccountDeleted event if successful.
	DeleteAccount(ctx context.Context, addr Address) (bool, error)
}
