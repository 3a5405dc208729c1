package appconfig

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/cosigner/internal/config"
	"github.com/vulpemventures/cosigner/internal/core/application"
	"github.com/vulpemventures/cosigner/internal/core/domain"
	"github.com/vulpemventures/cosigner/internal/core/ports"
	keypair_cosigner "github.com/vulpemventures/cosigner/internal/infrastructure/cosigner/keypair"
	websocket_listener "github.com/vulpemventures/cosigner/internal/infrastructure/listener/websocket"
	"github.com/vulpemventures/cosigner/internal/infrastructure/node/rest"
	dbbadger "github.com/vulpemventures/cosigner/internal/infrastructure/storage/db/badger"
	"github.com/vulpemventures/cosigner/internal/infrastructure/storage/db/inmemory"
)

// AppConfig is the struct holding all configuration options for
// every application service (account, transaction and notification).
// This data structure acts also as a factory of the mentioned application
// services and the portable services used by them.
// Public config args:
//   - Network - (required) The network of the node (mainnet, testnet).
//   - NodeUrl - (required) The REST endpoint of the node.
//   - ListenerUrl - (required) The websocket endpoint of the node.
//   - RequestTimeout - (optional) The timeout of every request to the node.
//   - HashLockConfirmationTimeout - (optional) How long to wait for a hash lock to be confirmed.
//   - ListenerReconnectAttempts - (optional) How many times a listener tries to restore a dropped connection.
//   - ListenerReconnectDelay - (optional) The delay between reconnection attempts.
//   - DedupCacheSize - (optional) How many delivered messages a listener remembers.
//   - RepoManagerType - (required) One of the supported repository manager types.
//   - RepoManagerConfig - (optional) Custom config args for the repository manager based on its type.
type AppConfig struct {
	Version string
	Commit  string
	Date    string

	Network                     domain.NetworkType
	NodeUrl                     string
	ListenerUrl                 string
	RequestTimeout              time.Duration
	HashLockConfirmationTimeout time.Duration
	ListenerReconnectAttempts   uint
	ListenerReconnectDelay      time.Duration
	DedupCacheSize              int

	RepoManagerType   string
	RepoManagerConfig interface{}

	rm         ports.RepoManager
	node       *rest.Client
	accountSvc *application.AccountService
	txSvc      *application.TransactionService
	notifySvc  *application.NotificationService
}

func (c *AppConfig) Validate() error {
	if c.Network.String() == "unknown" {
		return fmt.Errorf("unknown network")
	}
	if len(c.NodeUrl) == 0 {
		return fmt.Errorf("missing node url")
	}
	if len(c.ListenerUrl) == 0 {
		return fmt.Errorf("missing listener url")
	}
	if c.HashLockConfirmationTimeout < 0 {
		return fmt.Errorf("hash lock confirmation timeout must not be negative")
	}
	if len(c.RepoManagerType) == 0 {
		return fmt.Errorf("missing repo manager type")
	}
	if _, ok := config.SupportedDbs[c.RepoManagerType]; !ok {
		return fmt.Errorf(
			"repo manager type not supported, must be one of: %s",
			config.SupportedDbs,
		)
	}
	if _, err := c.nodeClient(); err != nil {
		return err
	}
	// Make sure the listener factory won't fail for a bad config.
	if _, err := websocket_listener.NewListener(c.listenerOpts()); err != nil {
		return err
	}
	if _, err := c.repoManager(); err != nil {
		return err
	}

	return nil
}

func (c *AppConfig) RepoManager() ports.RepoManager {
	return c.rm
}

func (c *AppConfig) NodeClient() *rest.Client {
	return c.node
}

// ListenerFactory returns a factory of listeners for the configured node. The
// listeners extend confirmed subscriptions to multisig accounts via the REST
// client.
func (c *AppConfig) ListenerFactory() ports.ListenerFactory {
	return websocket_listener.NewListenerFactory(c.listenerOpts())
}

func (c *AppConfig) AccountService() *application.AccountService {
	return c.accountService()
}

func (c *AppConfig) TransactionService() *application.TransactionService {
	return c.transactionService()
}

func (c *AppConfig) NotificationService() *application.NotificationService {
	return c.notificationService()
}

// Signer returns a cosignature signer for the given hex encoded private key.
func (c *AppConfig) Signer(privateKey string) (ports.CosignatureSigner, error) {
	return keypair_cosigner.NewService(privateKey)
}

func (c *AppConfig) BuildInfo() application.BuildInfo {
	return c.buildInfo()
}

// Close releases the shared listener of the notification feed and the
// address book.
func (c *AppConfig) Close() {
	if c.notifySvc != nil {
		c.notifySvc.Close()
	}
	if c.rm != nil {
		c.rm.Close()
	}
}

func (c *AppConfig) repoManager() (ports.RepoManager, error) {
	if c.rm != nil {
		return c.rm, nil
	}

	switch c.RepoManagerType {
	case "inmemory":
		c.rm = inmemory.NewRepoManager()
		return c.rm, nil
	case "badger":
		if c.RepoManagerConfig == nil {
			return nil, fmt.Errorf("missing repo manager config args")
		}
		datadir, ok := c.RepoManagerConfig.(string)
		if !ok {
			return nil, fmt.Errorf("invalid repo manager config type, must be string")
		}
		rm, err := dbbadger.NewRepoManager(datadir, log.New())
		if err != nil {
			return nil, err
		}
		c.rm = rm
		return c.rm, nil
	default:
		return nil, fmt.Errorf("unknown repo manager type")
	}
}

func (c *AppConfig) nodeClient() (*rest.Client, error) {
	if c.node != nil {
		return c.node, nil
	}

	client, err := rest.NewClient(c.NodeUrl, c.RequestTimeout)
	if err != nil {
		return nil, err
	}
	c.node = client
	return c.node, nil
}

func (c *AppConfig) listenerOpts() websocket_listener.Options {
	opts := websocket_listener.Options{
		URL:               c.ListenerUrl,
		ReconnectAttempts: c.ListenerReconnectAttempts,
		ReconnectDelay:    c.ListenerReconnectDelay,
		DedupCacheSize:    c.DedupCacheSize,
	}
	if node, err := c.nodeClient(); err == nil {
		opts.MultisigRepo = node
	}
	return opts
}

func (c *AppConfig) accountService() *application.AccountService {
	if c.accountSvc != nil {
		return c.accountSvc
	}

	rm, _ := c.repoManager()
	node, _ := c.nodeClient()
	c.accountSvc = application.NewAccountService(rm, node, node)
	return c.accountSvc
}

func (c *AppConfig) transactionService() *application.TransactionService {
	if c.txSvc != nil {
		return c.txSvc
	}

	node, _ := c.nodeClient()
	c.txSvc = application.NewTransactionService(
		node, c.ListenerFactory(), c.notificationService(),
		c.HashLockConfirmationTimeout,
	)
	return c.txSvc
}

func (c *AppConfig) notificationService() *application.NotificationService {
	if c.notifySvc != nil {
		return c.notifySvc
	}

	c.notifySvc = application.NewNotificationService(c.ListenerFactory())
	return c.notifySvc
}

func (c *AppConfig) buildInfo() application.BuildInfo {
	version := "dev"
	if c.Version != "" {
		version = c.Version
	}
	commit := "none"
	if c.Commit != "" {
		commit = c.Commit
	}
	date := "unknown"
	if c.Date != "" {
		date = c.Date
	}
	return application.BuildInfo{
		Version: version,
		Commit:  commit,
		Date:    date,
	}
}
