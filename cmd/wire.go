package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/nhle/inboxdigest/internal/ai"
	"github.com/nhle/inboxdigest/internal/credential"
	"github.com/nhle/inboxdigest/internal/logging"
	"github.com/nhle/inboxdigest/internal/mailbox"
	"github.com/nhle/inboxdigest/internal/metrics"
	"github.com/nhle/inboxdigest/internal/model"
	"github.com/nhle/inboxdigest/internal/store"
	mailsync "github.com/nhle/inboxdigest/internal/sync"
)

// breakerCooldown is how long an open breaker waits before letting a
// request through to the answering service again.
const breakerCooldown = 30 * time.Second

// resolveSecret looks a secret up in the keyring when the config leaves it
// empty. Tests replace it to keep the system keyring out of the picture.
var resolveSecret = credential.Resolve

// app holds the wired components shared by the subcommands.
type app struct {
	cfg    *model.AppConfig
	logger *slog.Logger

	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	store     *store.SQLiteStore
	connector *mailbox.Connector
	syncer    *mailsync.Syncer
	asker     *ai.Asker
}

// loadConfig reads the config file and applies the persistent flag
// overrides.
func loadConfig(gf globalFlags) (*model.AppConfig, error) {
	cfg, err := model.LoadConfig(gf.configPath)
	if err != nil {
		return nil, err
	}
	if gf.logLevel != "" {
		cfg.Log.Level = gf.logLevel
	}
	if gf.logFormat != "" {
		cfg.Log.Format = gf.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newApp wires every component from cfg. Logs go to logOut.
func newApp(cfg *model.AppConfig, logOut io.Writer) (*app, error) {
	logger, err := logging.Setup(logOut, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("setting up logging: %w", err)
	}
	slog.SetDefault(logger)

	password, err := resolveSecret(cfg.Mailbox.Password, credential.KeyMailboxPassword)
	if err != nil {
		logger.Warn("reading mailbox password from keyring failed", logging.Err(err))
	}
	cfg.Mailbox.Password = password

	apiKey, err := resolveSecret(cfg.AI.APIKey, credential.KeyAIAPIKey)
	if err != nil {
		logger.Warn("reading api key from keyring failed", logging.Err(err))
	}
	cfg.AI.APIKey = apiKey

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	st, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("opening run log: %w", err)
	}

	client := ai.NewClient(cfg.AI,
		ai.WithLogger(logger),
		ai.WithObserver(m.ObserveAnswer),
	)
	answerer := ai.WithBreaker(client, cfg.AI.BreakerFailures, breakerCooldown, logger)

	connector := mailbox.NewConnector(mailbox.NewIMAPDialer(cfg.Mailbox, logger), logger)
	syncer := mailsync.New(
		connector,
		mailbox.NewDecoder(cfg.AI.Locale),
		ai.NewAnnotator(answerer, cfg.AI.Locale, logger),
		mailsync.Options{
			Folder:      cfg.Mailbox.Folder,
			Window:      cfg.Mailbox.Window,
			Concurrency: cfg.AI.Concurrency,
			Recorder:    st,
			Metrics:     m,
			Logger:      logger,
		},
	)

	return &app{
		cfg:       cfg,
		logger:    logger,
		registry:  registry,
		metrics:   m,
		store:     st,
		connector: connector,
		syncer:    syncer,
		asker:     ai.NewAsker(answerer, cfg.AI.Locale),
	}, nil
}

// Close releases the mailbox session and the run log.
func (a *app) Close() error {
	var errs []error
	if err := a.connector.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing mailbox session: %w", err))
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing run log: %w", err))
	}
	return errors.Join(errs...)
}
