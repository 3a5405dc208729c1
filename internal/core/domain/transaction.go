package domain

import (
	"encoding/hex"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	hashSize = 32
)

const (
	TransactionTypeUnknown           TransactionType = 0
	TransactionTypeTransfer          TransactionType = 0x4154
	TransactionTypeAggregateBonded   TransactionType = 0x4241
	TransactionTypeAggregateComplete TransactionType = 0x4141
	TransactionTypeHashLock          TransactionType = 0x4148
	TransactionTypeMultisigModify    TransactionType = 0x4155
)

const (
	TransactionGroupUnknown TransactionGroup = iota
	TransactionGroupUnconfirmed
	TransactionGroupConfirmed
	TransactionGroupFailed
	TransactionGroupPartial
)

var (
	transactionTypeString = map[TransactionType]string{
		TransactionTypeUnknown:           "Unknown",
		TransactionTypeTransfer:          "Transfer",
		TransactionTypeAggregateBonded:   "AggregateBonded",
		TransactionTypeAggregateComplete: "AggregateComplete",
		TransactionTypeHashLock:          "HashLock",
		TransactionTypeMultisigModify:    "MultisigAccountModification",
	}
	transactionGroupString = map[TransactionGroup]string{
		TransactionGroupUnknown:     "unknown",
		TransactionGroupUnconfirmed: "unconfirmed",
		TransactionGroupConfirmed:   "confirmed",
		TransactionGroupFailed:      "failed",
		TransactionGroupPartial:     "partial",
	}
)

type TransactionType uint16

func (t TransactionType) String() string {
	if s, ok := transactionTypeString[t]; ok {
		return s
	}
	return transactionTypeString[TransactionTypeUnknown]
}

// TransactionGroup is the lifecycle bucket the node files a transaction in.
type TransactionGroup int

func (g TransactionGroup) String() string {
	return transactionGroupString[g]
}

// ParseTransactionGroup returns the group for the given name as used by the
// node.
func ParseTransactionGroup(name string) TransactionGroup {
	for group, str := range transactionGroupString {
		if str == name {
			return group
		}
	}
	return TransactionGroupUnknown
}

// SignedTransaction is a serialized and signed transaction ready to be
// announced. It's built and signed elsewhere.
type SignedTransaction struct {
	Payload         string
	Hash            string
	SignerPublicKey string
	Type            TransactionType
	NetworkType     NetworkType
}

// Validate checks the transaction is well formed before it's announced.
func (t SignedTransaction) Validate() error {
	if len(t.Payload) == 0 {
		return ErrMissingPayload
	}
	if _, err := hex.DecodeString(t.Payload); err != nil {
		return ErrInvalidPayload
	}
	if err := ValidateHash(t.Hash); err != nil {
		return err
	}
	if _, err := t.SignerAddress(); err != nil {
		return err
	}
	return nil
}

// SignerAddress returns the address of the account that signed the
// transaction.
func (t SignedTransaction) SignerAddress() (Address, error) {
	return NewAddressFromPublicKey(t.SignerPublicKey, t.NetworkType)
}

// HashEquals compares the given hash with the one of the transaction,
// ignoring case.
func (t SignedTransaction) HashEquals(hash string) bool {
	return strings.EqualFold(t.Hash, hash)
}

// CosignatureSignedTransaction is the cosignature of an aggregate bonded
// transaction identified by ParentHash.
type CosignatureSignedTransaction struct {
	ParentHash      string
	Signature       string
	SignerPublicKey string
	Version         uint64
}

// Cosignature is a cosignature already attached to an aggregate transaction.
type Cosignature struct {
	SignerPublicKey string
	Signature       string
	Version         uint64
}

// Mosaic is an amount of a given mosaic moved by a transaction.
type Mosaic struct {
	ID     string
	Amount decimal.Decimal
}

// TransactionInfo is the view of an announced transaction as notified by the
// node either via push channels or via REST.
type TransactionInfo struct {
	Hash            string
	Height          uint64
	Type            TransactionType
	SignerPublicKey string
	Deadline        uint64
	Mosaics         []Mosaic
	Cosignatures    []Cosignature
}

// HasSigner returns whether the given public key either signed the
// transaction or already cosigned it.
func (t TransactionInfo) HasSigner(publicKey string) bool {
	if strings.EqualFold(t.SignerPublicKey, publicKey) {
		return true
	}
	for _, c := range t.Cosignatures {
		if strings.EqualFold(c.SignerPublicKey, publicKey) {
			return true
		}
	}
	return false
}

// HasMosaic returns whether the transaction moves the given mosaic.
func (t TransactionInfo) HasMosaic(id string) bool {
	for _, m := range t.Mosaics {
		if strings.EqualFold(m.ID, id) {
			return true
		}
	}
	return false
}

// TransactionStatus is the status of a transaction as returned by the node.
type TransactionStatus struct {
	Hash     string
	Group    TransactionGroup
	Code     string
	Deadline uint64
	Height   uint64
}

// IsFailed returns whether the transaction was rejected or expired.
func (s TransactionStatus) IsFailed() bool {
	return s.Group == TransactionGroupFailed
}

// TransactionStatusError is the push notification of a transaction rejected
// by the node.
type TransactionStatusError struct {
	Hash     string
	Code     string
	Deadline uint64
	Address  Address
}

// ValidateHash checks the given string is a 32 bytes hash in hex format.
func ValidateHash(hash string) error {
	buf, err := hex.DecodeString(hash)
	if err != nil || len(buf) != hashSize {
		return ErrInvalidHash
	}
	return nil
}
