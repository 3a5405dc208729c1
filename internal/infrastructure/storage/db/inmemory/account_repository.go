package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/vulpemventures/cosigner/internal/core/domain"
)

type accountInmemoryStore struct {
	accounts map[domain.Address]domain.Account
	lock     *sync.RWMutex
}

type accountRepository struct {
	store    *accountInmemoryStore
	chEvents chan domain.AccountEvent
	chLock   *sync.Mutex
	closed   bool
}

func NewAccountRepository() domain.AccountRepository {
	return newAccountRepository()
}

func newAccountRepository() *accountRepository {
	return &accountRepository{
		store: &accountInmemoryStore{
			accounts: make(map[domain.Address]domain.Account),
			lock:     &sync.RWMutex{},
		},
		chEvents: make(chan domain.AccountEvent),
		chLock:   &sync.Mutex{},
	}
}

func (r *accountRepository) AddAccount(
	ctx context.Context, account domain.Account,
) (bool, error) {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	done := r.addAccount(ctx, account)
	if done {
		go r.publishEvent(domain.AccountEvent{
			EventType: domain.AccountAdded,
			Account:   account,
		})
	}

	return done, nil
}

func (r *accountRepository) GetAccount(
	_ context.Context, addr domain.Address,
) (*domain.Account, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	account, ok := r.store.accounts[addr]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return &account, nil
}

func (r *accountRepository) GetAllAccounts(
	_ context.Context,
) ([]domain.Account, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	accounts := make([]domain.Account, 0, len(r.store.accounts))
	for _, account := range r.store.accounts {
		accounts = append(accounts, account)
	}
	sort.SliceStable(accounts, func(i, j int) bool {
		if accounts[i].Name == accounts[j].Name {
			return accounts[i].Address.String() < accounts[j].Address.String()
		}
		return accounts[i].Name < accounts[j].Name
	})
	return accounts, nil
}

func (r *accountRepository) DeleteAccount(
	_ context.Context, addr domain.Address,
) (bool, error) {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	account, ok := r.store.accounts[addr]
	if !ok {
		return false, nil
	}
	delete(r.store.accounts, addr)

	go r.publishEvent(domain.AccountEvent{
		EventType: domain.AccountDeleted,
		Account:   account,
	})
	return true, nil
}

func (r *accountRepository) addAccount(
	_ context.Context, account domain.Account,
) bool {
	if _, ok := r.store.accounts[account.Address]; ok {
		return false
	}
	r.store.accounts[account.Address] = account
	return true
}

func (r *accountRepository) publishEvent(event domain.AccountEvent) {
	r.chLock.Lock()
	defer r.chLock.Unlock()

	if r.closed {
		return
	}
	r.chEvents <- event
}

func (r *accountRepository) reset() {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	r.store.accounts = make(map[domain.Address]domain.Account)
}

func (r *accountRepository) close() {
	r.chLock.Lock()
	defer r.chLock.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	close(r.chEvents)
}
