package rest

import (
	"context"
	"fmt"
	"net/url"

	"github.com/vulpemventures/cosigner/internal/core/domain"
	"github.com/vulpemventures/cosigner/internal/infrastructure/node/dto"
)

func (c *Client) Announce(
	ctx context.Context, tx domain.SignedTransaction,
) error {
	var resp dto.AnnounceResponse
	if err := c.put(
		ctx, "announce", "/transactions",
		dto.AnnounceRequest{Payload: tx.Payload}, &resp,
	); err != nil {
		return err
	}
	c.log("announced transaction %s: %s", tx.Hash, resp.Message)
	return nil
}

func (c *Client) AnnounceAggregateBonded(
	ctx context.Context, tx domain.SignedTransaction,
) error {
	var resp dto.AnnounceResponse
	if err := c.put(
		ctx, "announce_partial", "/transactions/partial",
		dto.AnnounceRequest{Payload: tx.Payload}, &resp,
	); err != nil {
		return err
	}
	c.log("announced aggregate bonded %s: %s", tx.Hash, resp.Message)
	return nil
}

func (c *Client) AnnounceAggregateBondedCosignature(
	ctx context.Context, cosignature domain.CosignatureSignedTransaction,
) error {
	var resp dto.AnnounceResponse
	if err := c.put(
		ctx, "announce_cosignature", "/transactions/cosignature",
		dto.CosignatureFromDomain(cosignature), &resp,
	); err != nil {
		return err
	}
	c.log(
		"announced cosignature of %s for %s",
		cosignature.SignerPublicKey, cosignature.ParentHash,
	)
	return nil
}

func (c *Client) GetTransactionStatus(
	ctx context.Context, hash string,
) (*domain.TransactionStatus, error) {
	var resp dto.TransactionStatus
	path := fmt.Sprintf("/transactionStatus/%s", url.PathEscape(hash))
	if err := c.get(ctx, "get_transaction_status", path, &resp); err != nil {
		return nil, err
	}
	status := resp.ToDomain()
	return &status, nil
}

func (c *Client) GetPartialTransaction(
	ctx context.Context, hash string,
) (*domain.TransactionInfo, error) {
	var resp dto.Transaction
	path := fmt.Sprintf("/transactions/partial/%s", url.PathEscape(hash))
	if err := c.get(ctx, "get_partial_transaction", path, &resp); err != nil {
		return nil, err
	}
	return resp.ToDomain()
}

// GetMultisigAccountInfo returns nil if the account is not a multisig nor a
// cosignatory.
func (c *Client) GetMultisigAccountInfo(
	ctx context.Context, addr domain.Address,
) (*domain.MultisigEntry, error) {
	var resp dto.MultisigInfo
	path := fmt.Sprintf("/account/%s/multisig", addr.String())
	if err := c.get(ctx, "get_multisig", path, &resp); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return resp.Multisig.ToDomain()
}

// GetMultisigAccountGraphInfo returns an empty graph if the account is not a
// multisig nor a cosignatory.
func (c *Client) GetMultisigAccountGraphInfo(
	ctx context.Context, addr domain.Address,
) (domain.MultisigGraph, error) {
	var resp dto.MultisigGraph
	path := fmt.Sprintf("/account/%s/multisig/graph", addr.String())
	if err := c.get(ctx, "get_multisig_graph", path, &resp); err != nil {
		if isNotFound(err) {
			return domain.MultisigGraph{}, nil
		}
		return nil, err
	}
	return resp.ToDomain()
}

func (c *Client) GetAccountsNames(
	ctx context.Context, addresses []domain.Address,
) (map[domain.Address][]string, error) {
	if len(addresses) == 0 {
		return map[domain.Address][]string{}, nil
	}

	var resp dto.AccountsNamesResponse
	req := dto.AccountsNamesRequest{
		Addresses: domain.Addresses(addresses).Strings(),
	}
	if err := c.post(
		ctx, "get_accounts_names", "/namespaces/account/names", req, &resp,
	); err != nil {
		return nil, err
	}
	return resp.ToDomain()
}
