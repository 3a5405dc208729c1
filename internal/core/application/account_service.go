package application

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/cosigner/internal/core/domain"
	"github.com/vulpemventures/cosigner/internal/core/ports"
)

// AccountService is responsible for operations related to the active account
// and the address book:
//   - Select the active account, resolving its full multisig graph and the
//     list of signers it can act on behalf of.
//   - Return the last resolved view of the active account.
//   - Add, list or remove known accounts of the address book.
//
// The service registers 2 handlers related to the following account events:
//   - domain.AccountAdded - the signers of the active view are relabeled.
//   - domain.AccountDeleted - the signers of the active view are relabeled.
//
// The view is session scoped and never persisted: it's rebuilt from the node
// every time the active account changes.
type AccountService struct {
	repoManager   ports.RepoManager
	resolver      *MultisigGraphResolver
	namespaceRepo ports.NamespaceRepository

	lock *sync.RWMutex
	view *AccountView

	log  func(format string, a ...interface{})
	warn func(err error, format string, a ...interface{})
}

func NewAccountService(
	repoManager ports.RepoManager, multisigRepo ports.MultisigRepository,
	namespaceRepo ports.NamespaceRepository,
) *AccountService {
	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("account service: %s", format)
		log.Debugf(format, a...)
	}
	warnFn := func(err error, format string, a ...interface{}) {
		format = fmt.Sprintf("account service: %s", format)
		log.WithError(err).Warnf(format, a...)
	}

	svc := &AccountService{
		repoManager:   repoManager,
		resolver:      NewMultisigGraphResolver(multisigRepo),
		namespaceRepo: namespaceRepo,
		lock:          &sync.RWMutex{},
		log:           logFn,
		warn:          warnFn,
	}
	svc.registerHandlerForAccountEvents()
	return svc
}

// SelectAccount makes the given address the active account and returns its
// freshly resolved view.
func (as *AccountService) SelectAccount(
	ctx context.Context, address string,
) (*AccountView, error) {
	addr, err := domain.ParseAddress(address)
	if err != nil {
		return nil, err
	}

	graph := as.resolver.ResolveFullGraph(ctx, addr)
	view, err := as.buildView(ctx, addr, graph)
	if err != nil {
		return nil, err
	}

	as.lock.Lock()
	as.view = view
	as.lock.Unlock()

	as.log(
		"selected account %s with %d signer(s)", addr, len(view.Signers),
	)
	return view, nil
}

// CurrentView returns the last resolved view of the active account.
func (as *AccountService) CurrentView() (*AccountView, bool) {
	as.lock.RLock()
	defer as.lock.RUnlock()

	if as.view == nil {
		return nil, false
	}
	view := *as.view
	return &view, true
}

func (as *AccountService) AddKnownAccount(
	ctx context.Context, name, address, publicKey string,
) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, domain.NewValidationError("name", "missing account name")
	}
	addr, err := domain.ParseAddress(address)
	if err != nil {
		return false, err
	}
	if publicKey != "" {
		pubkeyAddr, err := domain.NewAddressFromPublicKey(
			publicKey, addr.NetworkType(),
		)
		if err != nil {
			return false, err
		}
		if !pubkeyAddr.Equals(addr) {
			return false, domain.NewValidationError(
				"publicKey", "public key does not match address",
			)
		}
	}

	return as.repoManager.AccountRepository().AddAccount(ctx, domain.Account{
		Name:      name,
		Address:   addr,
		PublicKey: strings.ToUpper(publicKey),
	})
}

func (as *AccountService) RemoveKnownAccount(
	ctx context.Context, address string,
) (bool, error) {
	addr, err := domain.ParseAddress(address)
	if err != nil {
		return false, err
	}
	return as.repoManager.AccountRepository().DeleteAccount(ctx, addr)
}

func (as *AccountService) ListKnownAccounts(
	ctx context.Context,
) (domain.Accounts, error) {
	accounts, err := as.repoManager.AccountRepository().GetAllAccounts(ctx)
	if err != nil {
		return nil, err
	}
	return domain.Accounts(accounts), nil
}

func (as *AccountService) buildView(
	ctx context.Context, addr domain.Address, graph domain.MultisigGraph,
) (*AccountView, error) {
	knownAccounts, err := as.repoManager.AccountRepository().GetAllAccounts(ctx)
	if err != nil {
		return nil, err
	}

	entries := as.resolver.Flatten(graph)
	info, _ := graph.EntryAt(0, addr)

	resolver := SignerResolver{Names: as.resolveNames(ctx, entries)}
	signers := resolver.GetSigners(knownAccounts, addr, info, entries)

	return &AccountView{
		Account:      addr,
		Graph:        graph,
		Entries:      entries,
		MultisigInfo: info,
		Signers:      signers,
		ResolvedAt:   time.Now(),
	}, nil
}

// resolveNames is best effort, signers fall back to the raw address as label.
func (as *AccountService) resolveNames(
	ctx context.Context, entries []domain.MultisigEntry,
) map[domain.Address][]string {
	if as.namespaceRepo == nil || len(entries) == 0 {
		return nil
	}

	addresses := make(domain.Addresses, 0)
	for _, entry := range entries {
		if !addresses.Contains(entry.AccountAddress) {
			addresses = append(addresses, entry.AccountAddress)
		}
		for _, addr := range entry.MultisigAddresses {
			if !addresses.Contains(addr) {
				addresses = append(addresses, addr)
			}
		}
	}

	names, err := as.namespaceRepo.GetAccountsNames(ctx, addresses)
	if err != nil {
		as.warn(err, "failed to resolve account names")
		return nil
	}
	return names
}

func (as *AccountService) registerHandlerForAccountEvents() {
	relabel := func(event domain.AccountEvent) {
		as.lock.Lock()
		defer as.lock.Unlock()

		if as.view == nil {
			return
		}

		ctx := context.Background()
		view, err := as.buildView(ctx, as.view.Account, as.view.Graph)
		if err != nil {
			as.warn(err, "failed to relabel signers after %s", event.EventType)
			return
		}
		as.view = view
		as.log(
			"relabeled signers of account %s after %s of %s",
			view.Account, event.EventType, event.Account.Address,
		)
	}

	as.repoManager.RegisterHandlerForAccountEvent(domain.AccountAdded, relabel)
	as.repoManager.RegisterHandlerForAccountEvent(domain.AccountDeleted, relabel)
}
