package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vulpemventures/cosigner/internal/core/domain"
	"github.com/vulpemventures/cosigner/pkg/metrics"
)

var watchCmd = &cobra.Command{
	Use:   "watch <address> [<address>...]",
	Short: "stream the node notifications of one or more accounts",
	Long: "this command subscribes to the confirmed, partial, cosignature " +
		"and status channels of the given accounts and prints every " +
		"notification until interrupted",
	Args: cobra.MinimumNArgs(1),
	RunE: watch,
}

func watch(_ *cobra.Command, args []string) error {
	if metricsEnabled := !noMetrics; metricsEnabled {
		metricsSvc, err := metrics.NewService(metrics.ServiceOpts{
			Port:          metricsPort,
			StatsInterval: statsInterval,
			Datadir:       metricsDir,
		})
		if err != nil {
			return err
		}
		if err := metricsSvc.Start(); err != nil {
			return err
		}
		defer metricsSvc.Stop()
	}

	appCfg, err := newAppConfig()
	if err != nil {
		return err
	}
	defer appCfg.Close()

	notifySvc := appCfg.NotificationService()
	ctx := context.Background()
	for _, addr := range args {
		if err := notifySvc.WatchAccount(ctx, addr); err != nil {
			return err
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	chEvents := notifySvc.GetEventChannel()
	for {
		select {
		case event, ok := <-chEvents:
			if !ok {
				return nil
			}
			if err := printJSON(newEventInfo(event)); err != nil {
				log.WithError(err).Warn("failed to print event")
			}
		case <-sigChan:
			return nil
		}
	}
}

type eventInfo struct {
	Topic     string `json:"topic"`
	Address   string `json:"address"`
	Hash      string `json:"hash"`
	Height    uint64 `json:"height,omitempty"`
	Signer    string `json:"signer,omitempty"`
	Signature string `json:"signature,omitempty"`
	Code      string `json:"code,omitempty"`
}

func newEventInfo(event domain.NodeEvent) eventInfo {
	info := eventInfo{
		Topic:   event.Topic.String(),
		Address: event.Address.Pretty(),
		Hash:    event.Hash,
	}
	if tx := event.Transaction; tx != nil {
		info.Height = tx.Height
		info.Signer = tx.SignerPublicKey
	}
	if c := event.Cosignature; c != nil {
		info.Signer = c.SignerPublicKey
		info.Signature = c.Signature
	}
	if s := event.StatusError; s != nil {
		info.Code = s.Code
	}
	return info
}
