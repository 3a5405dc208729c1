package application

import (
	"github.com/vulpemventures/cosigner/internal/core/domain"
)

// SignerResolver derives the identities the current account can act on behalf
// of. Names, if set, maps addresses to aliases resolved on the node and is
// used to label signers not present among the known accounts.
type SignerResolver struct {
	Names map[domain.Address][]string
}

// GetSigners returns the current account first, then the multisig accounts
// it cosigns for, then any other account found in the given multisig entries.
// Each address appears once, the first occurrence wins.
func (r SignerResolver) GetSigners(
	knownAccounts domain.Accounts, currentAccount domain.Address,
	currentAccountMultisigInfo *domain.MultisigEntry,
	allMultisigEntries []domain.MultisigEntry,
) domain.Signers {
	self := domain.Signer{
		Address: currentAccount,
		Label:   r.label(knownAccounts, currentAccount),
	}
	if currentAccountMultisigInfo != nil {
		self.Multisig = currentAccountMultisigInfo.IsMultisig()
		self.RequiredCosignatures = currentAccountMultisigInfo.MinApproval
	}

	signers := domain.Signers{self}
	if currentAccountMultisigInfo == nil {
		return signers
	}

	for _, entry := range allMultisigEntries {
		if !entry.HasCosigner(currentAccount) || len(entry.MultisigAddresses) == 0 {
			continue
		}
		for _, addr := range entry.MultisigAddresses {
			if signers.Contains(addr) {
				continue
			}
			signers = append(signers, domain.Signer{
				Address:              addr,
				Label:                r.label(knownAccounts, addr),
				Multisig:             true,
				RequiredCosignatures: currentAccountMultisigInfo.MinApproval,
				ParentSigners:        parentSigners(signers, addr, allMultisigEntries),
			})
		}
	}

	for _, entry := range allMultisigEntries {
		addr := entry.AccountAddress
		if addr.Equals(currentAccount) || signers.Contains(addr) {
			continue
		}
		signer := domain.Signer{
			Address:              addr,
			Label:                r.label(knownAccounts, addr),
			Multisig:             len(entry.CosignatoryAddresses) > 0,
			RequiredCosignatures: entry.MinApproval,
		}
		if signer.Multisig {
			signer.ParentSigners = parentSigners(signers, addr, allMultisigEntries)
		}
		signers = append(signers, signer)
	}

	return signers
}

func (r SignerResolver) label(
	knownAccounts domain.Accounts, addr domain.Address,
) string {
	if name, ok := knownAccounts.NameOf(addr); ok {
		return name
	}
	if names := r.Names[addr]; len(names) > 0 {
		return names[0]
	}
	return addr.Pretty()
}

// parentSigners returns the already resolved signers that are cosignatories
// of the given multisig account.
func parentSigners(
	signers domain.Signers, multisig domain.Address,
	entries []domain.MultisigEntry,
) []domain.Signer {
	var entry *domain.MultisigEntry
	for i := range entries {
		if entries[i].AccountAddress.Equals(multisig) {
			entry = &entries[i]
			break
		}
	}

	parents := make([]domain.Signer, 0)
	for _, signer := range signers {
		isParent := signer.Address != multisig &&
			((entry != nil && entry.HasCosigner(signer.Address)) ||
				isCosignerOf(entries, signer.Address, multisig))
		if isParent {
			parent := signer
			parent.ParentSigners = nil
			parents = append(parents, parent)
		}
	}
	return parents
}

func isCosignerOf(
	entries []domain.MultisigEntry, cosigner, multisig domain.Address,
) bool {
	for _, e := range entries {
		if e.AccountAddress.Equals(cosigner) && e.IsCosignerOf(multisig) {
			return true
		}
	}
	return false
}
