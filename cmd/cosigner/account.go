package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vulpemventures/cosigner/internal/core/domain"
)

var (
	accountName      string
	accountPublicKey string

	accountAddCmd = &cobra.Command{
		Use:   "add <address>",
		Short: "add an account to the address book",
		Long: "this command stores an account under a human readable name, " +
			"used to label the signers of any multisig it belongs to",
		Args: cobra.ExactArgs(1),
		RunE: accountAdd,
	}
	accountRemoveCmd = &cobra.Command{
		Use:   "remove <address>",
		Short: "remove an account from the address book",
		Args:  cobra.ExactArgs(1),
		RunE:  accountRemove,
	}
	accountListCmd = &cobra.Command{
		Use:   "list",
		Short: "list the accounts of the address book",
		RunE:  accountList,
	}
	accountCmd = &cobra.Command{
		Use:   "accounts",
		Short: "manage the address book of known accounts",
	}

	graphCmd = &cobra.Command{
		Use:   "graph <address>",
		Short: "print the full multisig graph of an account",
		Long: "this command resolves the multisig graph of the given account " +
			"merged with the graphs of the topmost multisig accounts it " +
			"cosigns for",
		Args: cobra.ExactArgs(1),
		RunE: accountGraph,
	}
	signersCmd = &cobra.Command{
		Use:   "signers <address>",
		Short: "print the accounts the given one can sign for",
		Args:  cobra.ExactArgs(1),
		RunE:  accountSigners,
	}
)

func init() {
	accountAddCmd.Flags().StringVarP(
		&accountName, "name", "n", "", "name of the account",
	)
	accountAddCmd.Flags().StringVar(
		&accountPublicKey, "public-key", "",
		"optional hex encoded public key of the account",
	)
	accountAddCmd.MarkFlagRequired("name")

	accountCmd.AddCommand(accountAddCmd, accountRemoveCmd, accountListCmd)
}

func accountAdd(_ *cobra.Command, args []string) error {
	appCfg, err := newAppConfig()
	if err != nil {
		return err
	}
	defer appCfg.Close()

	added, err := appCfg.AccountService().AddKnownAccount(
		context.Background(), accountName, args[0], accountPublicKey,
	)
	if err != nil {
		return err
	}
	if !added {
		fmt.Printf("account %s is already known\n", args[0])
		return nil
	}

	fmt.Printf("account %s has been added as %s\n", args[0], accountName)
	return nil
}

func accountRemove(_ *cobra.Command, args []string) error {
	appCfg, err := newAppConfig()
	if err != nil {
		return err
	}
	defer appCfg.Close()

	removed, err := appCfg.AccountService().RemoveKnownAccount(
		context.Background(), args[0],
	)
	if err != nil {
		return err
	}
	if !removed {
		fmt.Printf("account %s is not known\n", args[0])
		return nil
	}

	fmt.Printf("account %s has been removed\n", args[0])
	return nil
}

func accountList(_ *cobra.Command, _ []string) error {
	appCfg, err := newAppConfig()
	if err != nil {
		return err
	}
	defer appCfg.Close()

	accounts, err := appCfg.AccountService().ListKnownAccounts(
		context.Background(),
	)
	if err != nil {
		return err
	}

	list := make([]accountInfo, 0, len(accounts))
	for _, a := range accounts {
		list = append(list, accountInfo{
			Name:      a.Name,
			Address:   a.Address.Pretty(),
			PublicKey: a.PublicKey,
		})
	}
	return printJSON(list)
}

func accountGraph(_ *cobra.Command, args []string) error {
	appCfg, err := newAppConfig()
	if err != nil {
		return err
	}
	defer appCfg.Close()

	view, err := appCfg.AccountService().SelectAccount(
		context.Background(), args[0],
	)
	if err != nil {
		return err
	}

	graph := make(map[int][]multisigEntryInfo, len(view.Graph))
	for _, level := range view.Graph.Levels() {
		for _, entry := range view.Graph[level] {
			graph[level] = append(graph[level], newMultisigEntryInfo(entry))
		}
	}
	return printJSON(graph)
}

func accountSigners(_ *cobra.Command, args []string) error {
	appCfg, err := newAppConfig()
	if err != nil {
		return err
	}
	defer appCfg.Close()

	view, err := appCfg.AccountService().SelectAccount(
		context.Background(), args[0],
	)
	if err != nil {
		return err
	}

	signers := make([]signerInfo, 0, len(view.Signers))
	for _, s := range view.Signers {
		signers = append(signers, newSignerInfo(s))
	}
	return printJSON(signers)
}

type accountInfo struct {
	Name      string `json:"name"`
	Address   string `json:"address"`
	PublicKey string `json:"publicKey,omitempty"`
}

type multisigEntryInfo struct {
	Address       string   `json:"address"`
	MinApproval   int      `json:"minApproval"`
	MinRemoval    int      `json:"minRemoval"`
	Cosignatories []string `json:"cosignatories"`
	Multisigs     []string `json:"multisigs"`
}

func newMultisigEntryInfo(entry domain.MultisigEntry) multisigEntryInfo {
	return multisigEntryInfo{
		Address:       entry.AccountAddress.Pretty(),
		MinApproval:   entry.MinApproval,
		MinRemoval:    entry.MinRemoval,
		Cosignatories: prettyAddresses(entry.CosignatoryAddresses),
		Multisigs:     prettyAddresses(entry.MultisigAddresses),
	}
}

type signerInfo struct {
	Address              string       `json:"address"`
	Label                string       `json:"label"`
	Multisig             bool         `json:"multisig"`
	RequiredCosignatures int          `json:"requiredCosignatures,omitempty"`
	ParentSigners        []signerInfo `json:"parentSigners,omitempty"`
}

func newSignerInfo(s domain.Signer) signerInfo {
	info := signerInfo{
		Address:              s.Address.Pretty(),
		Label:                s.Label,
		Multisig:             s.Multisig,
		RequiredCosignatures: s.RequiredCosignatures,
	}
	for _, parent := range s.ParentSigners {
		info.ParentSigners = append(info.ParentSigners, newSignerInfo(parent))
	}
	return info
}

func prettyAddresses(addresses domain.Addresses) []string {
	list := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		list = append(list, addr.Pretty())
	}
	return list
}
