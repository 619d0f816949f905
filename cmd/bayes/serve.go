package main

import (
	"fmt"

	"github.com/drakos74/free-bayes/internal/config"
	"github.com/drakos74/free-bayes/internal/metrics"
	"github.com/drakos74/free-bayes/internal/server"
	"github.com/drakos74/free-bayes/internal/service"
	"github.com/drakos74/free-bayes/internal/storage"
	"github.com/drakos74/free-bayes/internal/storage/file/json"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shard = "models"

func serve(opts *options) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "serve models over http",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			r, err := registry(cfg)
			if err != nil {
				return err
			}
			srv := server.NewServer("bayes", cfg.Server.Port).
				Add(server.NewAPI(r, cfg.Server.Debug).Routes()...).
				Handle("/metrics", metrics.Handler())
			if cfg.Server.Debug {
				srv.Debug()
			}
			return srv.Run()
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", config.Default().Server.Port, "http port")
	return cmd
}

// shards picks the storage backend of the configuration.
func shards(cfg config.Config) storage.Shard {
	switch {
	case cfg.Storage.Void:
		return storage.VoidShard()
	case cfg.Storage.Memory:
		return json.LocalShard()
	}
	return json.BlobShard(cfg.Storage.Dir, cfg.Storage.Table, cfg.Server.Debug)
}

// registry restores the persisted models, creating the configured one if there are none.
func registry(cfg config.Config) (*service.Registry, error) {
	store, err := shards(cfg)(shard)
	if err != nil {
		return nil, fmt.Errorf("could not create storage: %w", err)
	}
	r := service.NewRegistry(store, metrics.Observer)
	n, err := r.Restore()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		info, err := r.Create(cfg.Model)
		if err != nil {
			return nil, err
		}
		log.Info().Str("id", info.ID).Str("name", info.Name).Msg("serving new model")
	}
	return r, nil
}
