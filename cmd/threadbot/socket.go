package main

import (
	"github.com/samber/do"
	"github.com/slack-go/slack"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/capitalize-ai/threadbot/internal/config"
	"github.com/capitalize-ai/threadbot/internal/service"
	"github.com/capitalize-ai/threadbot/internal/slackbot"
)

func newSocketCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "socket",
		Short: "Receive events over a persistent Slack socket-mode connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, log, err := bootstrap(config.ModeSocket)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			defer startTracing(ctx, cfg, log)()

			di := newInjector(ctx, cfg, log)
			defer func() {
				if err := di.Shutdown(); err != nil {
					log.Warn("shutdown failed", zap.Error(err))
				}
			}()

			mentions, err := do.Invoke[*service.MentionService](di)
			if err != nil {
				return err
			}

			listener := slackbot.NewSocketListener(
				do.MustInvoke[*slack.Client](di),
				mentions,
				cfg.Slack.MaxConcurrentMentions,
				log,
			)

			log.Info("threadbot started",
				zap.String("mode", string(cfg.Mode)),
				zap.String("llm_provider", cfg.LLM.Provider),
				zap.String("history_backend", cfg.History.Backend),
				zap.Bool("retrieval", mentions.RetrievalEnabled()),
			)
			return listener.Run(ctx)
		},
	}
}
