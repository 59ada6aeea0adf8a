package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/lebinh/aq/internal/config"
	"github.com/lebinh/aq/internal/engine"
	"github.com/lebinh/aq/internal/provider"
	"github.com/lebinh/aq/internal/provider/aws"
	"github.com/lebinh/aq/internal/provider/fixture"
	"github.com/lebinh/aq/internal/store"
)

// session is an engine with the store and provider it runs on.
type session struct {
	config   *config.Config
	store    *store.Store
	provider provider.Provider
	engine   *engine.Engine
	logger   *slog.Logger
}

// newLogger returns a text logger on w: WARN by default, INFO when
// verbose, DEBUG when debug.
func newLogger(w io.Writer, verbose, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (opts *RootOptions) logger(cmd *cobra.Command) *slog.Logger {
	if opts.Logger != nil {
		return opts.Logger
	}
	return newLogger(cmd.ErrOrStderr(), opts.Verbose, opts.Debug)
}

// loadConfig reads the config file and applies flags the user set.
func loadConfig(opts *RootOptions, cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.ConfigPath != "" {
		cfg, err = config.Load(opts.ConfigPath)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("data-dir") {
		cfg.DataDir = opts.DataDir
	}
	if flags.Changed("ttl") {
		cfg.TTL = opts.TTL
	}
	if flags.Changed("region") {
		cfg.DefaultNamespace = opts.Region
	}
	if flags.Changed("provider") {
		cfg.Provider = opts.Provider
	}
	if flags.Changed("fixture") {
		cfg.FixturePath = opts.Fixture
		if !flags.Changed("provider") {
			cfg.Provider = config.ProviderFixture
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newProvider builds the provider cfg selects.
func newProvider(cfg *config.Config, logger *slog.Logger) (provider.Provider, error) {
	switch cfg.Provider {
	case config.ProviderFixture:
		return fixture.Load(cfg.FixturePath)
	case config.ProviderAWS:
		return aws.New(aws.WithLogger(logger)), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// openSession loads the configuration, opens the store and starts an engine.
func openSession(ctx context.Context, opts *RootOptions, cmd *cobra.Command) (*session, error) {
	logger := opts.logger(cmd)

	cfg, err := loadConfig(opts, cmd)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	p, err := newProvider(cfg, logger)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.DataDir, store.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("aq needs a working directory to store fetched tables before querying: %w", err)
	}

	logger.Info("store opened", "data_dir", st.DataDir(), "provider", cfg.Provider)

	eng, err := engine.New(ctx, st, p,
		engine.WithTTL(cfg.TTL),
		engine.WithDefaultNamespace(cfg.DefaultNamespace),
		engine.WithLogger(logger),
	)
	if err != nil {
		st.Close()
		return nil, err
	}

	return &session{
		config:   cfg,
		store:    st,
		provider: p,
		engine:   eng,
		logger:   logger,
	}, nil
}

// Close closes the store.
func (s *session) Close() error {
	return s.store.Close()
}
