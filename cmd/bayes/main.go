package main

import (
	"fmt"
	"os"

	"github.com/drakos74/free-bayes/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

type options struct {
	config string
	level  string
}

func main() {
	if err := root().Execute(); err != nil {
		os.Exit(1)
	}
}

func root() *cobra.Command {
	opts := new(options)
	cmd := &cobra.Command{
		Use:          "bayes",
		Short:        "sequential bayesian linear regression",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.config, "config", "c", "", "yaml configuration file")
	cmd.PersistentFlags().StringVar(&opts.level, "log-level", "", "log level, overrides the configuration")
	cmd.AddCommand(demo(opts), serve(opts))
	return cmd
}

// load reads the configuration and applies the log level.
func (o *options) load() (config.Config, error) {
	cfg, err := config.Load(o.config)
	if err != nil {
		return cfg, err
	}
	if o.level != "" {
		cfg.Log.Level = o.level
	}
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		return cfg, fmt.Errorf("invalid log level '%s': %w", cfg.Log.Level, err)
	}
	zerolog.SetGlobalLevel(level)
	return cfg, nil
}
