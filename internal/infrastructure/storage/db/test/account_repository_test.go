package db_test

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/cosigner/internal/core/domain"
	"github.com/vulpemventures/cosigner/internal/core/ports"
	dbbadger "github.com/vulpemventures/cosigner/internal/infrastructure/storage/db/badger"
	"github.com/vulpemventures/cosigner/internal/infrastructure/storage/db/inmemory"
)

var ctx = context.Background()

func TestAccountRepository(t *testing.T) {
	repositories, err := newAccountRepositories(
		func(repoType string) ports.AccountEventHandler {
			return func(event domain.AccountEvent) {
				fmt.Printf("received event from %s repo: %+v\n", repoType, event)
			}
		},
	)
	require.NoError(t, err)

	for name, repo := range repositories {
		repo := repo
		t.Run(name, func(t *testing.T) {
			testAccountRepository(t, repo)
		})
	}
}

func TestAccountEvents(t *testing.T) {
	repoManagers, err := newRepoManagers()
	require.NoError(t, err)

	for name, rm := range repoManagers {
		rm := rm
		t.Run(name, func(t *testing.T) {
			defer rm.Close()

			lock := &sync.Mutex{}
			received := make([]domain.AccountEventType, 0)
			handler := func(event domain.AccountEvent) {
				lock.Lock()
				defer lock.Unlock()
				received = append(received, event.EventType)
			}
			rm.RegisterHandlerForAccountEvent(domain.AccountAdded, handler)
			rm.RegisterHandlerForAccountEvent(domain.AccountDeleted, handler)
			countReceived := func() int {
				lock.Lock()
				defer lock.Unlock()
				return len(received)
			}

			account := randomAccount("alice")
			done, err := rm.AccountRepository().AddAccount(ctx, account)
			require.NoError(t, err)
			require.True(t, done)

			require.Eventually(t, func() bool {
				return countReceived() == 1
			}, 2*time.Second, 10*time.Millisecond)

			done, err = rm.AccountRepository().DeleteAccount(ctx, account.Address)
			require.NoError(t, err)
			require.True(t, done)

			require.Eventually(t, func() bool {
				return countReceived() == 2
			}, 2*time.Second, 10*time.Millisecond)

			lock.Lock()
			defer lock.Unlock()
			require.Equal(t, domain.AccountAdded, received[0])
			require.Equal(t, domain.AccountDeleted, received[1])
		})
	}
}

func TestRepoManagerReset(t *testing.T) {
	repoManagers, err := newRepoManagers()
	require.NoError(t, err)

	for name, rm := range repoManagers {
		rm := rm
		t.Run(name, func(t *testing.T) {
			defer rm.Close()

			repo := rm.AccountRepository()
			for _, name := range []string{"alice", "bob"} {
				done, err := repo.AddAccount(ctx, randomAccount(name))
				require.NoError(t, err)
				require.True(t, done)
			}

			rm.Reset()

			accounts, err := repo.GetAllAccounts(ctx)
			require.NoError(t, err)
			require.Empty(t, accounts)

			// The repo is still usable after a reset.
			done, err := repo.AddAccount(ctx, randomAccount("carol"))
			require.NoError(t, err)
			require.True(t, done)
		})
	}
}

func testAccountRepository(t *testing.T, repo domain.AccountRepository) {
	bob := randomAccount("bob")
	alice := randomAccount("alice")

	t.Run("add_account", func(t *testing.T) {
		done, err := repo.AddAccount(ctx, bob)
		require.NoError(t, err)
		require.True(t, done)

		done, err = repo.AddAccount(ctx, bob)
		require.NoError(t, err)
		require.False(t, done)

		done, err = repo.AddAccount(ctx, alice)
		require.NoError(t, err)
		require.True(t, done)
	})

	t.Run("get_account", func(t *testing.T) {
		account, err := repo.GetAccount(ctx, bob.Address)
		require.NoError(t, err)
		require.NotNil(t, account)
		require.Equal(t, bob, *account)

		account, err = repo.GetAccount(ctx, randomAccount("carol").Address)
		require.ErrorIs(t, err, domain.ErrAccountNotFound)
		require.Nil(t, account)
	})

	t.Run("get_all_accounts", func(t *testing.T) {
		accounts, err := repo.GetAllAccounts(ctx)
		require.NoError(t, err)
		require.Len(t, accounts, 2)
		require.Equal(t, alice, accounts[0])
		require.Equal(t, bob, accounts[1])
	})

	t.Run("delete_account", func(t *testing.T) {
		done, err := repo.DeleteAccount(ctx, bob.Address)
		require.NoError(t, err)
		require.True(t, done)

		done, err = repo.DeleteAccount(ctx, bob.Address)
		require.NoError(t, err)
		require.False(t, done)

		accounts, err := repo.GetAllAccounts(ctx)
		require.NoError(t, err)
		require.Len(t, accounts, 1)
		require.Equal(t, alice, accounts[0])
	})
}

func newRepoManagers() (map[string]ports.RepoManager, error) {
	badgerRepoManager, err := dbbadger.NewRepoManager("", nil)
	if err != nil {
		return nil, err
	}
	return map[string]ports.RepoManager{
		"inmemory": inmemory.NewRepoManager(),
		"badger":   badgerRepoManager,
	}, nil
}

func newAccountRepositories(
	handlerFactory func(repoType string) ports.AccountEventHandler,
) (map[string]domain.AccountRepository, error) {
	repoManagers, err := newRepoManagers()
	if err != nil {
		return nil, err
	}

	repositories := make(map[string]domain.AccountRepository)
	for name, repoManager := range repoManagers {
		handler := handlerFactory(name)
		repoManager.RegisterHandlerForAccountEvent(domain.AccountAdded, handler)
		repoManager.RegisterHandlerForAccountEvent(domain.AccountDeleted, handler)
		repositories[name] = repoManager.AccountRepository()
	}
	return repositories, nil
}

func randomAccount(name string) domain.Account {
	var keyHash [20]byte
	// nolint
	rand.Read(keyHash[:])
	return domain.Account{
		Name:    name,
		Address: domain.NewAddress(domain.TestNet, keyHash),
	}
}
