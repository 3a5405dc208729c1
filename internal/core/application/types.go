package application

import (
	"time"

	"github.com/vulpemventures/cosigner/internal/core/domain"
)

const (
	DefaultHashLockConfirmationTimeout = 2 * time.Minute
)

type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// AccountView is the last resolved view of the active account: its multisig
// graph and the signers it can act on behalf of. It's rebuilt wholesale
// whenever the active account changes.
type AccountView struct {
	Account      domain.Address
	Graph        domain.MultisigGraph
	Entries      []domain.MultisigEntry
	MultisigInfo *domain.MultisigEntry
	Signers      domain.Signers
	ResolvedAt   time.Time
}

// IsMultisig returns whether the active account is itself a multisig.
func (v AccountView) IsMultisig() bool {
	return v.MultisigInfo != nil && v.MultisigInfo.IsMultisig()
}

// Cosignatories returns the cosignatories of the active account, if any.
func (v AccountView) Cosignatories() domain.Addresses {
	if v.MultisigInfo == nil {
		return nil
	}
	return v.MultisigInfo.CosignatoryAddresses
}
