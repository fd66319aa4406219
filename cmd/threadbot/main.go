// Command threadbot answers Slack app mentions with streamed LLM replies.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/capitalize-ai/threadbot/internal/config"
	"github.com/capitalize-ai/threadbot/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "threadbot",
		Short:         "Answer Slack mentions with streamed LLM replies",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newSocketCmd(), newHTTPCmd(), newReindexCmd())
	return cmd
}

// bootstrap loads configuration and the logger for mode.
func bootstrap(mode config.Mode) (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(mode)
	if err != nil {
		return nil, nil, err
	}

	var log *logger.Logger
	if cfg.IsDevelopment() {
		log, err = logger.NewDevelopment()
	} else {
		log, err = logger.New(cfg.LogLevel)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.SetGlobal(log)

	return cfg, log, nil
}
