package ports

import (
	"context"

	"github.com/vulpemventures/cosigner/internal/core/domain"
)

// CosignatureSigner is the signing capability of the local account, used to
// cosign aggregate bonded transactions announced by others.
type CosignatureSigner interface {
	// PublicKey returns the hex encoded public key of the signer.
	PublicKey() string
	// SignCosignature signs the given aggregate bonded transaction.
	SignCosignature(
		ctx context.Context, tx domain.TransactionInfo,
	) (*domain.CosignatureSignedTransaction, error)
}
