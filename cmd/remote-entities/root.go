package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-remote-entities/cache"
	"github.com/goliatone/go-remote-entities/pkg/di"
	"github.com/goliatone/go-remote-entities/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// app holds what the subcommands share: parsed flags and the container built
// before each run.
type app struct {
	out        io.Writer
	configPath string
	debug      bool
	options    []di.Option

	logger    *zap.Logger
	container *di.Container
}

func newRootCommand(out io.Writer, opts ...di.Option) *cobra.Command {
	a := &app{out: out, options: opts}

	cmd := &cobra.Command{
		Use:   "remote-entities",
		Short: "Query remote sites, groups and collections through the response cache",
		Long: `remote-entities reads sites, groups and collections from the remote API,
caches every response and filters or sorts the cached records locally.

Settings come from the --config file and REMOTE_ENTITIES_* environment
variables, e.g. REMOTE_ENTITIES_API_PASSWORD.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.teardown()
		},
	}

	cmd.SetOut(out)
	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "configuration file (yaml, json or toml)")
	cmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "development logging at debug level")

	cmd.AddCommand(
		newQueryCommand(a),
		newLoadCommand(a),
		newInvalidateCommand(a),
		newTagsCommand(a),
	)
	return cmd
}

func (a *app) setup(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	logger, err := newLogger(a.debug)
	if err != nil {
		return err
	}
	a.logger = logger

	v := viper.New()
	if a.configPath != "" {
		v.SetConfigFile(a.configPath)
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrap(err, errors.CategoryBadInput, "failed to read configuration").
				WithMetadata(map[string]any{"path": a.configPath})
		}
	}

	storageConfig, err := storage.LoadConfig(v)
	if err != nil {
		return err
	}

	config := di.DefaultConfig()
	config.Storage = storageConfig
	if driver := v.GetString("persistent.driver"); driver != "" {
		config.Persistent = &cache.PersistentConfig{
			Driver: driver,
			DSN:    v.GetString("persistent.dsn"),
		}
	}

	opts := []di.Option{di.WithLogger(logger)}
	if ns := v.GetString("namespace"); ns != "" {
		opts = append(opts, di.WithNamespace(ns))
	}
	opts = append(opts, a.options...)

	container, err := di.NewContainer(ctx, config, opts...)
	if err != nil {
		return err
	}
	a.container = container

	logger.Debug("configuration loaded",
		zap.String("client", storageConfig.Client),
		zap.String("endpoint", storageConfig.Endpoint),
		zap.String("config", a.configPath),
	)
	return nil
}

func (a *app) teardown() error {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	if a.container == nil {
		return nil
	}
	return a.container.Close()
}

func (a *app) adapter() (*storage.Adapter, error) {
	return a.container.Adapter()
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
