package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/capitalize-ai/threadbot/internal/config"
	"github.com/capitalize-ai/threadbot/internal/retrieval"
)

func newReindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Drop and recreate the vector index (destroys all stored vectors)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap(config.ModeReindex)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			api, err := retrieval.NewPineconeAPI(cfg.Pinecone.APIKey)
			if err != nil {
				return err
			}

			admin := retrieval.NewIndexAdmin(api, retrieval.IndexSpec{
				Name:      cfg.Pinecone.Index,
				Dimension: cfg.Pinecone.Dimension,
				Cloud:     cfg.Pinecone.Cloud,
				Region:    cfg.Pinecone.Region,
			}, log)

			if err := admin.Rebuild(cmd.Context()); err != nil {
				return err
			}
			log.Info("index rebuilt", zap.String("index", cfg.Pinecone.Index))
			return nil
		},
	}
}
