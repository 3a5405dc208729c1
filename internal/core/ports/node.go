package ports

import (
	"context"

	"github.com/vulpemventures/cosigner/internal/core/domain"
)

// TransactionRepository gives access to the transaction endpoints of a node.
type TransactionRepository interface {
	// Announce sends a signed transaction to the network.
	Announce(ctx context.Context, tx domain.SignedTransaction) error
	// AnnounceAggregateBonded sends a signed aggregate bonded transaction to
	// the partial transactions cache of the network.
	AnnounceAggregateBonded(ctx context.Context, tx domain.SignedTransaction) error
	// AnnounceAggregateBondedCosignature sends the cosignature of an aggregate
	// bonded transaction waiting in the partial cache.
	AnnounceAggregateBondedCosignature(
		ctx context.Context, cosignature domain.CosignatureSignedTransaction,
	) error
	// GetTransactionStatus returns the status of the transaction identified
	// by the given hash.
	GetTransactionStatus(
		ctx context.Context, hash string,
	) (*domain.TransactionStatus, error)
	// GetPartialTransaction returns the aggregate bonded transaction waiting
	// for cosignatures identified by the given hash.
	GetPartialTransaction(
		ctx context.Context, hash string,
	) (*domain.TransactionInfo, error)
}

// MultisigRepository gives access to the multisig endpoints of a node.
type MultisigRepository interface {
	// GetMultisigAccountInfo returns the multisig entry of the given account.
	GetMultisigAccountInfo(
		ctx context.Context, addr domain.Address,
	) (*domain.MultisigEntry, error)
	// GetMultisigAccountGraphInfo returns the multisig graph anchored at the
	// given account.
	GetMultisigAccountGraphInfo(
		ctx context.Context, addr domain.Address,
	) (domain.MultisigGraph, error)
}

// NamespaceRepository gives access to the aliases linked to accounts.
type NamespaceRepository interface {
	// GetAccountsNames returns the alias names linked to each of the given
	// addresses, keyed by address.
	GetAccountsNames(
		ctx context.Context, addresses []domain.Address,
	) (map[domain.Address][]string, error)
}
