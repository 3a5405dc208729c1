package application_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/cosigner/internal/core/application"
	"github.com/vulpemventures/cosigner/internal/core/domain"
	"github.com/vulpemventures/cosigner/internal/infrastructure/storage/db/inmemory"
)

func TestAccountService(t *testing.T) {
	self, multisig, cosigner := randomAddress(), randomAddress(), randomAddress()
	selfEntry := domain.MultisigEntry{
		AccountAddress:    self,
		MultisigAddresses: domain.Addresses{multisig},
	}
	multisigEntry := domain.MultisigEntry{
		AccountAddress:       multisig,
		MinApproval:          2,
		MinRemoval:           2,
		CosignatoryAddresses: domain.Addresses{self, cosigner},
	}
	cosignerEntry := domain.MultisigEntry{
		AccountAddress:    cosigner,
		MultisigAddresses: domain.Addresses{multisig},
	}

	multisigRepo := &mockMultisigRepository{}
	multisigRepo.On("GetMultisigAccountGraphInfo", mock.Anything, self).Return(
		domain.MultisigGraph{
			-1: {multisigEntry},
			0:  {selfEntry},
		}, nil,
	)
	multisigRepo.On("GetMultisigAccountGraphInfo", mock.Anything, multisig).Return(
		domain.MultisigGraph{
			0: {multisigEntry},
			1: {selfEntry, cosignerEntry},
		}, nil,
	)
	namespaceRepo := &mockNamespaceRepository{}
	namespaceRepo.On("GetAccountsNames", mock.Anything, mock.Anything).Return(
		map[domain.Address][]string{multisig: {"team.vault"}}, nil,
	)

	repoManager := inmemory.NewRepoManager()
	defer repoManager.Close()

	svc := application.NewAccountService(repoManager, multisigRepo, namespaceRepo)

	view, ok := svc.CurrentView()
	require.False(t, ok)
	require.Nil(t, view)

	view, err := svc.SelectAccount(ctx, self.Pretty())
	require.NoError(t, err)
	require.NotNil(t, view)
	require.Equal(t, self, view.Account)
	require.False(t, view.IsMultisig())
	require.Empty(t, view.Cosignatories())
	require.Equal(t, []domain.MultisigEntry{selfEntry, cosignerEntry}, view.Graph[0])
	require.Equal(t, []domain.MultisigEntry{multisigEntry}, view.Graph[-1])
	require.Len(t, view.Entries, 3)
	require.Equal(t, domain.Addresses{self, cosigner, multisig}, view.Signers.Addresses())

	multisigSigner, ok := view.Signers.Find(multisig)
	require.True(t, ok)
	require.True(t, multisigSigner.Multisig)
	require.Equal(t, 2, multisigSigner.RequiredCosignatures)
	require.Equal(t, "team.vault", multisigSigner.Label)
	require.Equal(t, self.Pretty(), view.Signers[0].Label)

	// Adding a known account relabels the signers of the active view.
	done, err := svc.AddKnownAccount(ctx, "alice", self.String(), "")
	require.NoError(t, err)
	require.True(t, done)

	require.Eventually(t, func() bool {
		view, ok := svc.CurrentView()
		return ok && view.Signers[0].Label == "alice"
	}, 2*time.Second, 10*time.Millisecond)

	done, err = svc.AddKnownAccount(ctx, "alice bis", self.String(), "")
	require.NoError(t, err)
	require.False(t, done)

	accounts, err := svc.ListKnownAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	require.Equal(t, "alice", accounts[0].Name)

	done, err = svc.RemoveKnownAccount(ctx, self.String())
	require.NoError(t, err)
	require.True(t, done)

	require.Eventually(t, func() bool {
		view, ok := svc.CurrentView()
		return ok && view.Signers[0].Label == self.Pretty()
	}, 2*time.Second, 10*time.Millisecond)

	done, err = svc.RemoveKnownAccount(ctx, self.String())
	require.NoError(t, err)
	require.False(t, done)

	// The graph is resolved once per selection.
	multisigRepo.AssertNumberOfCalls(t, "GetMultisigAccountGraphInfo", 2)
}

func TestAccountServiceNoMultisig(t *testing.T) {
	self := randomAddress()

	multisigRepo := &mockMultisigRepository{}
	multisigRepo.On("GetMultisigAccountGraphInfo", mock.Anything, self).
		Return(nil, fmt.Errorf("connection refused"))
	namespaceRepo := &mockNamespaceRepository{}

	repoManager := inmemory.NewRepoManager()
	defer repoManager.Close()

	svc := application.NewAccountService(repoManager, multisigRepo, namespaceRepo)

	view, err := svc.SelectAccount(ctx, self.Hex())
	require.NoError(t, err)
	require.NotNil(t, view)
	require.True(t, view.Graph.IsEmpty())
	require.Nil(t, view.MultisigInfo)
	require.Len(t, view.Signers, 1)
	require.Equal(t, self, view.Signers[0].Address)
	require.False(t, view.Signers[0].Multisig)
	require.Zero(t, view.Signers[0].RequiredCosignatures)

	namespaceRepo.AssertNotCalled(t, "GetAccountsNames", mock.Anything, mock.Anything)
}

func TestAccountServiceInvalidArgs(t *testing.T) {
	publicKey := randomPublicKey()
	addr, err := domain.NewAddressFromPublicKey(publicKey, domain.TestNet)
	require.NoError(t, err)

	repoManager := inmemory.NewRepoManager()
	defer repoManager.Close()

	svc := application.NewAccountService(
		repoManager, &mockMultisigRepository{}, &mockNamespaceRepository{},
	)

	view, err := svc.SelectAccount(ctx, "TBNOTANADDRESS")
	require.Error(t, err)
	require.True(t, domain.IsValidationError(err))
	require.Nil(t, view)

	tests := []struct {
		name      string
		account   string
		address   string
		publicKey string
	}{
		{"missing_name", " ", addr.String(), publicKey},
		{"invalid_address", "bob", "invalid", publicKey},
		{"invalid_public_key", "bob", addr.String(), "00"},
		{"mismatching_public_key", "bob", addr.String(), randomPublicKey()},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			done, err := svc.AddKnownAccount(ctx, tt.account, tt.address, tt.publicKey)
			require.Error(t, err)
			require.True(t, domain.IsValidationError(err))
			require.False(t, done)
		})
	}

	done, err := svc.AddKnownAccount(ctx, "bob", addr.Pretty(), toLower(publicKey))
	require.NoError(t, err)
	require.True(t, done)

	accounts, err := svc.ListKnownAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	require.Equal(t, publicKey, accounts[0].PublicKey)
}
