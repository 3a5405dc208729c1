package dbbadger

import (
	"context"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold/v4"
	"github.com/vulpemventures/cosigner/internal/core/domain"
)

// accountDTO is the persisted form of domain.Account. Addresses are stored
// in their text format and parsed back, so that a corrupted record is
// detected rather than silently loaded.
type accountDTO struct {
	Name      string `badgerhold:"index"`
	Address   string
	PublicKey string
}

func (a accountDTO) toDomain() (*domain.Account, error) {
	addr, err := domain.ParseAddress(a.Address)
	if err != nil {
		return nil, fmt.Errorf("invalid stored address %s: %w", a.Address, err)
	}
	return &domain.Account{
		Name:      a.Name,
		Address:   addr,
		PublicKey: a.PublicKey,
	}, nil
}

type accountRepository struct {
	store    *badgerhold.Store
	chEvents chan domain.AccountEvent
	lock     *sync.Mutex
	closed   bool

	log func(format string, a ...interface{})
}

func NewAccountRepository(store *badgerhold.Store) domain.AccountRepository {
	return newAccountRepository(store)
}

func newAccountRepository(store *badgerhold.Store) *accountRepository {
	chEvents := make(chan domain.AccountEvent)
	lock := &sync.Mutex{}
	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("account repository: %s", format)
		log.Debugf(format, a...)
	}
	return &accountRepository{store, chEvents, lock, false, logFn}
}

func (r *accountRepository) AddAccount(
	ctx context.Context, account domain.Account,
) (bool, error) {
	done, err := r.insertAccount(ctx, account)
	if err != nil {
		return false, err
	}

	if done {
		go r.publishEvent(domain.AccountEvent{
			EventType: domain.AccountAdded,
			Account:   account,
		})
	}

	return done, nil
}

func (r *accountRepository) GetAccount(
	ctx context.Context, addr domain.Address,
) (*domain.Account, error) {
	dto, err := r.getAccount(ctx, addr.String())
	if err != nil {
		return nil, err
	}
	if dto == nil {
		return nil, domain.ErrAccountNotFound
	}
	return dto.toDomain()
}

func (r *accountRepository) GetAllAccounts(
	ctx context.Context,
) ([]domain.Account, error) {
	query := (&badgerhold.Query{}).SortBy("Name", "Address")
	dtos, err := r.findAccounts(ctx, query)
	if err != nil {
		return nil, err
	}

	accounts := make([]domain.Account, 0, len(dtos))
	for _, dto := range dtos {
		account, err := dto.toDomain()
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	return accounts, nil
}

func (r *accountRepository) DeleteAccount(
	ctx context.Context, addr domain.Address,
) (bool, error) {
	dto, err := r.getAccount(ctx, addr.String())
	if err != nil {
		return false, err
	}
	if dto == nil {
		return false, nil
	}

	done, err := r.deleteAccount(ctx, addr.String())
	if err != nil {
		return false, err
	}
	if done {
		account, _ := dto.toDomain()
		if account == nil {
			account = &domain.Account{Name: dto.Name, Address: addr}
		}
		go r.publishEvent(domain.AccountEvent{
			EventType: domain.AccountDeleted,
			Account:   *account,
		})
	}

	return done, nil
}

func (r *accountRepository) insertAccount(
	ctx context.Context, account domain.Account,
) (bool, error) {
	key := account.Address.String()
	dto := accountDTO{
		Name:      account.Name,
		Address:   key,
		PublicKey: account.PublicKey,
	}

	var err error
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxInsert(tx, key, dto)
	} else {
		err = r.store.Insert(key, dto)
	}
	if err != nil {
		if err == badgerhold.ErrKeyExists {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *accountRepository) getAccount(
	ctx context.Context, key string,
) (*accountDTO, error) {
	var dto accountDTO
	var err error
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxGet(tx, key, &dto)
	} else {
		err = r.store.Get(key, &dto)
	}
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &dto, nil
}

func (r *accountRepository) findAccounts(
	ctx context.Context, query *badgerhold.Query,
) ([]accountDTO, error) {
	var list []accountDTO
	var err error
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxFind(tx, &list, query)
	} else {
		err = r.store.Find(&list, query)
	}
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return list, nil
}

func (r *accountRepository) deleteAccount(
	ctx context.Context, key string,
) (bool, error) {
	var err error
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxDelete(tx, key, accountDTO{})
	} else {
		err = r.store.Delete(key, accountDTO{})
	}
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *accountRepository) publishEvent(event domain.AccountEvent) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.closed {
		return
	}
	r.log("publish event %s", event.EventType)
	r.chEvents <- event
}

func (r *accountRepository) reset() {
	// nolint
	r.store.Badger().DropAll()
}

func (r *accountRepository) close() {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	close(r.chEvents)
	r.store.Close()
}
