package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vulpemventures/cosigner/internal/core/domain"
)

var (
	lockPath    string
	partialPath string
	privateKey  string

	txAnnounceCmd = &cobra.Command{
		Use:   "broadcast",
		Short: "announce an aggregate bonded transaction",
		Long: "this command announces the signed hash lock, waits for it to " +
			"be confirmed and then announces the signed aggregate bonded " +
			"transaction",
		RunE: txAnnounce,
	}
	txCosignCmd = &cobra.Command{
		Use:   "cosign <hash>",
		Short: "cosign a pending aggregate bonded transaction",
		Args:  cobra.ExactArgs(1),
		RunE:  txCosign,
	}
	txStatusCmd = &cobra.Command{
		Use:   "status <hash>",
		Short: "get the status of a transaction",
		Args:  cobra.ExactArgs(1),
		RunE:  txStatus,
	}
)

func init() {
	txAnnounceCmd.Flags().StringVar(
		&lockPath, "lock", "", "path of the json file of the signed hash lock",
	)
	txAnnounceCmd.Flags().StringVar(
		&partialPath, "partial", "",
		"path of the json file of the signed aggregate bonded transaction",
	)
	txAnnounceCmd.MarkFlagRequired("lock")
	txAnnounceCmd.MarkFlagRequired("partial")

	txCosignCmd.Flags().StringVar(
		&privateKey, "private-key", "",
		"hex encoded private key of the cosignatory",
	)
	txCosignCmd.MarkFlagRequired("private-key")
}

func txAnnounce(_ *cobra.Command, _ []string) error {
	lock, err := readSignedTransaction(lockPath, domain.TransactionTypeHashLock)
	if err != nil {
		return err
	}
	partial, err := readSignedTransaction(
		partialPath, domain.TransactionTypeAggregateBonded,
	)
	if err != nil {
		return err
	}

	appCfg, err := newAppConfig()
	if err != nil {
		return err
	}
	defer appCfg.Close()

	ctx, stop := signal.NotifyContext(
		context.Background(), syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	res, err := appCfg.TransactionService().AnnounceAggregateBonded(
		ctx, lock, partial,
	)
	if err != nil {
		return err
	}
	return printJSON(broadcastInfo{
		Hash:    res.SignedPartialTransaction.Hash,
		Success: res.Success,
		Error:   res.Error,
	})
}

func txCosign(_ *cobra.Command, args []string) error {
	appCfg, err := newAppConfig()
	if err != nil {
		return err
	}
	defer appCfg.Close()

	signer, err := appCfg.Signer(privateKey)
	if err != nil {
		return err
	}

	res, err := appCfg.TransactionService().Cosign(
		context.Background(), args[0], signer,
	)
	if err != nil {
		return err
	}
	return printJSON(cosignInfo{
		Hash:          res.TransactionHash,
		Success:       res.Success,
		Expired:       res.Expired,
		AlreadySigned: res.AlreadySigned,
		Error:         res.Error,
	})
}

func txStatus(_ *cobra.Command, args []string) error {
	appCfg, err := newAppConfig()
	if err != nil {
		return err
	}
	defer appCfg.Close()

	status, err := appCfg.TransactionService().GetTransactionStatus(
		context.Background(), args[0],
	)
	if err != nil {
		return err
	}
	return printJSON(statusInfo{
		Hash:     status.Hash,
		Group:    status.Group.String(),
		Code:     status.Code,
		Deadline: status.Deadline,
		Height:   status.Height,
	})
}

type signedTransactionFile struct {
	Payload         string `json:"payload"`
	Hash            string `json:"hash"`
	SignerPublicKey string `json:"signerPublicKey"`
	Network         string `json:"network"`
}

func readSignedTransaction(
	path string, txType domain.TransactionType,
) (domain.SignedTransaction, error) {
	buf, err := os.ReadFile(cleanAndExpandPath(path))
	if err != nil {
		return domain.SignedTransaction{}, err
	}

	var tx signedTransactionFile
	if err := json.Unmarshal(buf, &tx); err != nil {
		return domain.SignedTransaction{}, fmt.Errorf(
			"failed to parse %s: %s", path, err,
		)
	}

	net := network
	if tx.Network != "" {
		n, ok := domain.ParseNetworkType(tx.Network)
		if !ok {
			return domain.SignedTransaction{}, fmt.Errorf(
				"unknown network %s in %s", tx.Network, path,
			)
		}
		net = n
	}

	return domain.SignedTransaction{
		Payload:         tx.Payload,
		Hash:            tx.Hash,
		SignerPublicKey: tx.SignerPublicKey,
		Type:            txType,
		NetworkType:     net,
	}, nil
}

type broadcastInfo struct {
	Hash    string `json:"hash"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type cosignInfo struct {
	Hash          string `json:"hash"`
	Success       bool   `json:"success"`
	Expired       bool   `json:"expired"`
	AlreadySigned bool   `json:"alreadySigned"`
	Error         string `json:"error,omitempty"`
}

type statusInfo struct {
	Hash     string `json:"hash"`
	Group    string `json:"group"`
	Code     string `json:"code,omitempty"`
	Deadline uint64 `json:"deadline,omitempty"`
	Height   uint64 `json:"height,omitempty"`
}
