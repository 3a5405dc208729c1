package keypair_cosigner

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/vulpemventures/cosigner/internal/core/domain"
	"github.com/vulpemventures/cosigner/internal/core/ports"
)

const cosignatureVersion = 0

// service cosigns aggregate bonded transactions with an ed25519 key held in
// memory. The cosignature is the signature of the parent transaction hash.
type service struct {
	privateKey ed25519.PrivateKey
	publicKey  string
}

// NewService returns a signer for the given 32 bytes private key in hex
// format.
func NewService(privateKey string) (ports.CosignatureSigner, error) {
	seed, err := hex.DecodeString(strings.TrimSpace(privateKey))
	if err != nil || len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("private key must be %d bytes in hex format", ed25519.SeedSize)
	}

	key := ed25519.NewKeyFromSeed(seed)
	pubkey := key.Public().(ed25519.PublicKey)
	return &service{
		privateKey: key,
		publicKey:  strings.ToUpper(hex.EncodeToString(pubkey)),
	}, nil
}

func (s *service) PublicKey() string {
	return s.publicKey
}

func (s *service) SignCosignature(
	_ context.Context, tx domain.TransactionInfo,
) (*domain.CosignatureSignedTransaction, error) {
	hash, err := hex.DecodeString(tx.Hash)
	if err != nil || len(hash) != 32 {
		return nil, domain.ErrInvalidHash
	}

	signature := ed25519.Sign(s.privateKey, hash)
	return &domain.CosignatureSignedTransaction{
		ParentHash:      strings.ToUpper(tx.Hash),
		Signature:       strings.ToUpper(hex.EncodeToString(signature)),
		SignerPublicKey: s.publicKey,
		Version:         cosignatureVersion,
	}, nil
}
