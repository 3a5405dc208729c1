// Package dto holds the JSON representations of the entities exchanged with
// a node, shared by the REST and websocket adapters.
package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vulpemventures/cosigner/internal/core/domain"
)

// Uint64 is an unsigned integer the node encodes as a JSON string to avoid
// precision loss. Plain JSON numbers are accepted as well.
type Uint64 uint64

func (u *Uint64) UnmarshalJSON(data []byte) error {
	str := string(bytes.Trim(data, `"`))
	if str == "" || str == "null" {
		*u = 0
		return nil
	}
	v, err := strconv.ParseUint(str, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid uint64 %s: %w", str, err)
	}
	*u = Uint64(v)
	return nil
}

func (u Uint64) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatUint(uint64(u), 10))
}

type Mosaic struct {
	ID     string `json:"id"`
	Amount string `json:"amount"`
}

type Cosignature struct {
	Version         Uint64 `json:"version"`
	SignerPublicKey string `json:"signerPublicKey"`
	Signature       string `json:"signature"`
	ParentHash      string `json:"parentHash,omitempty"`
}

func (c Cosignature) ToDomain() domain.CosignatureSignedTransaction {
	return domain.CosignatureSignedTransaction{
		ParentHash:      strings.ToUpper(c.ParentHash),
		Signature:       c.Signature,
		SignerPublicKey: strings.ToUpper(c.SignerPublicKey),
		Version:         uint64(c.Version),
	}
}

func CosignatureFromDomain(c domain.CosignatureSignedTransaction) Cosignature {
	return Cosignature{
		Version:         Uint64(c.Version),
		SignerPublicKey: c.SignerPublicKey,
		Signature:       c.Signature,
		ParentHash:      c.ParentHash,
	}
}

type TransactionMeta struct {
	Hash          string `json:"hash"`
	AggregateHash string `json:"aggregateHash,omitempty"`
	Height        Uint64 `json:"height"`
}

type TransactionBody struct {
	SignerPublicKey string        `json:"signerPublicKey"`
	Type            uint16        `json:"type"`
	Network         uint8         `json:"network"`
	Deadline        Uint64        `json:"deadline"`
	Mosaics         []Mosaic      `json:"mosaics,omitempty"`
	Cosignatures    []Cosignature `json:"cosignatures,omitempty"`
}

type Transaction struct {
	Meta        TransactionMeta `json:"meta"`
	Transaction TransactionBody `json:"transaction"`
}

func (t Transaction) ToDomain() (*domain.TransactionInfo, error) {
	mosaics := make([]domain.Mosaic, 0, len(t.Transaction.Mosaics))
	for _, m := range t.Transaction.Mosaics {
		amount, err := decimal.NewFromString(m.Amount)
		if err != nil {
			return nil, fmt.Errorf("invalid amount for mosaic %s: %w", m.ID, err)
		}
		mosaics = append(mosaics, domain.Mosaic{
			ID:     strings.ToUpper(m.ID),
			Amount: amount,
		})
	}

	cosignatures := make([]domain.Cosignature, 0, len(t.Transaction.Cosignatures))
	for _, c := range t.Transaction.Cosignatures {
		cosignatures = append(cosignatures, domain.Cosignature{
			SignerPublicKey: strings.ToUpper(c.SignerPublicKey),
			Signature:       c.Signature,
			Version:         uint64(c.Version),
		})
	}

	return &domain.TransactionInfo{
		Hash:            strings.ToUpper(t.Meta.Hash),
		Height:          uint64(t.Meta.Height),
		Type:            domain.TransactionType(t.Transaction.Type),
		SignerPublicKey: strings.ToUpper(t.Transaction.SignerPublicKey),
		Deadline:        uint64(t.Transaction.Deadline),
		Mosaics:         mosaics,
		Cosignatures:    cosignatures,
	}, nil
}

type TransactionStatus struct {
	Group    string `json:"group"`
	Code     string `json:"code"`
	Hash     string `json:"hash"`
	Deadline Uint64 `json:"deadline"`
	Height   Uint64 `json:"height"`
	Address  string `json:"address,omitempty"`
}

func (s TransactionStatus) ToDomain() domain.TransactionStatus {
	return domain.TransactionStatus{
		Hash:     strings.ToUpper(s.Hash),
		Group:    domain.ParseTransactionGroup(s.Group),
		Code:     s.Code,
		Deadline: uint64(s.Deadline),
		Height:   uint64(s.Height),
	}
}

// ToStatusError converts a status pushed by the node. The address is
// optional, a zero address is returned if missing or malformed.
func (s TransactionStatus) ToStatusError() domain.TransactionStatusError {
	var addr domain.Address
	if s.Address != "" {
		addr, _ = domain.ParseAddress(s.Address)
	}
	return domain.TransactionStatusError{
		Hash:     strings.ToUpper(s.Hash),
		Code:     s.Code,
		Deadline: uint64(s.Deadline),
		Address:  addr,
	}
}

type Multisig struct {
	Version              Uint64   `json:"version"`
	AccountAddress       string   `json:"accountAddress"`
	MinApproval          int      `json:"minApproval"`
	MinRemoval           int      `json:"minRemoval"`
	CosignatoryAddresses []string `json:"cosignatoryAddresses"`
	MultisigAddresses    []string `json:"multisigAddresses"`
}

func (m Multisig) ToDomain() (*domain.MultisigEntry, error) {
	account, err := domain.ParseAddress(m.AccountAddress)
	if err != nil {
		return nil, err
	}
	cosignatories, err := parseAddresses(m.CosignatoryAddresses)
	if err != nil {
		return nil, err
	}
	multisigs, err := parseAddresses(m.MultisigAddresses)
	if err != nil {
		return nil, err
	}
	return &domain.MultisigEntry{
		AccountAddress:       account,
		MinApproval:          m.MinApproval,
		MinRemoval:           m.MinRemoval,
		CosignatoryAddresses: cosignatories,
		MultisigAddresses:    multisigs,
	}, nil
}

type MultisigInfo struct {
	Multisig Multisig `json:"multisig"`
}

type MultisigGraphLevel struct {
	Level           int            `json:"level"`
	MultisigEntries []MultisigInfo `json:"multisigEntries"`
}

type MultisigGraph []MultisigGraphLevel

func (g MultisigGraph) ToDomain() (domain.MultisigGraph, error) {
	graph := make(domain.MultisigGraph)
	for _, level := range g {
		entries := make([]domain.MultisigEntry, 0, len(level.MultisigEntries))
		for _, e := range level.MultisigEntries {
			entry, err := e.Multisig.ToDomain()
			if err != nil {
				return nil, fmt.Errorf("level %d: %w", level.Level, err)
			}
			entries = append(entries, *entry)
		}
		graph[level.Level] = append(graph[level.Level], entries...)
	}
	return graph, nil
}

type AccountNames struct {
	Address string   `json:"address"`
	Names   []string `json:"names"`
}

type AccountsNamesRequest struct {
	Addresses []string `json:"addresses"`
}

type AccountsNamesResponse struct {
	AccountNames []AccountNames `json:"accountNames"`
}

func (r AccountsNamesResponse) ToDomain() (map[domain.Address][]string, error) {
	names := make(map[domain.Address][]string)
	for _, n := range r.AccountNames {
		addr, err := domain.ParseAddress(n.Address)
		if err != nil {
			return nil, err
		}
		names[addr] = n.Names
	}
	return names, nil
}

type AnnounceRequest struct {
	Payload string `json:"payload"`
}

type AnnounceResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func parseAddresses(list []string) (domain.Addresses, error) {
	addresses := make(domain.Addresses, 0, len(list))
	for _, str := range list {
		addr, err := domain.ParseAddress(str)
		if err != nil {
			return nil, err
		}
		addresses = append(addresses, addr)
	}
	return addresses, nil
}
