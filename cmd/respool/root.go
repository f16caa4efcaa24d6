package main

import (
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/yuku/respool"
	"github.com/yuku/respool/internal/logger"
	"github.com/yuku/respool/internal/store/natsstore"
	"go.uber.org/zap"
)

const envPrefix = "RESPOOL"

// app carries the resolved configuration shared by every subcommand.
type app struct {
	v   *viper.Viper
	log *zap.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{v: viper.New(), log: zap.NewNop()}

	root := &cobra.Command{
		Use:           "respool",
		Short:         "Manage a pool of single-use resource records",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.log.Sync()
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "Path to a config file (yaml, json or toml)")
	flags.String("backend", "postgres", "Record store: postgres, nats or memory")
	flags.String("group", respool.DefaultGroupKey, "Group key of the pool")
	flags.String("database-url", "", "PostgreSQL connection string (defaults to DATABASE_URL or PG* variables)")
	flags.String("nats-url", nats.DefaultURL, "NATS server URL")
	flags.String("nats-bucket", natsstore.DefaultBucket, "JetStream key-value bucket")
	flags.Int("min-available", respool.DefaultMinimumAvailable, "Number of available records a refill restores")
	flags.Int("buffer", respool.DefaultBuffer, "Number of extra records a refill creates")
	flags.String("refill-mode", respool.RefillInline.String(), "What an acquisition does about refilling: inline, background or disabled")
	flags.String("log-level", "warn", "Log level (debug, info, warn, error)")
	flags.String("log-encoding", "console", "Log encoding (console or json)")

	root.AddCommand(
		newSetupCommand(a),
		newListCommand(a),
		newAddCommand(a),
		newGetCommand(a),
		newDeleteCommand(a),
		newAcquireCommand(a),
		newAllocateCommand(a),
		newRefillCommand(a),
		newShellCommand(a),
		newRefillerCommand(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}

	if path := a.v.GetString("config"); path != "" {
		a.v.SetConfigFile(path)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	log, err := logger.New(logger.Config{
		Level:    a.v.GetString("log-level"),
		Encoding: a.v.GetString("log-encoding"),
	})
	if err != nil {
		return err
	}
	a.log = log
	return nil
}

// poolConfig builds the pool configuration from flags, environment and
// config file.
func (a *app) poolConfig() (respool.Config, error) {
	mode, err := respool.ParseRefillMode(a.v.GetString("refill-mode"))
	if err != nil {
		return respool.Config{}, err
	}
	conf := respool.Config{
		GroupKey:         a.v.GetString("group"),
		MinimumAvailable: a.v.GetInt("min-available"),
		Buffer:           a.v.GetInt("buffer"),
		RefillMode:       mode,
		Logger:           a.log,
	}
	return conf, conf.Validate()
}
