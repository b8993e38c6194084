package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/catalpa-lab/secondbrain/pkg/cli/config"
	httpctrl "github.com/catalpa-lab/secondbrain/pkg/controller/http"
	"github.com/catalpa-lab/secondbrain/pkg/service/embedding"
	"github.com/catalpa-lab/secondbrain/pkg/service/memory"
	"github.com/catalpa-lab/secondbrain/pkg/usecase"
	"github.com/catalpa-lab/secondbrain/pkg/utils/logging"
	"github.com/catalpa-lab/secondbrain/pkg/utils/safe"
)

func cmdServe() *cli.Command {
	var addr string
	var indexConversations bool
	var appCfg config.App
	var backendCfg config.Backend
	var llmCfg config.LLM

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       "127.0.0.1:8000",
			Sources:     cli.EnvVars("SECONDBRAIN_ADDR"),
			Destination: &addr,
		},
		&cli.BoolFlag{
			Name:        "index-conversations",
			Usage:       "Store completed chat exchanges as searchable memory chunks",
			Value:       true,
			Sources:     cli.EnvVars("SECONDBRAIN_INDEX_CONVERSATIONS"),
			Destination: &indexConversations,
		},
	}
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, backendCfg.Flags()...)
	flags = append(flags, llmCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			convs, memBackend, err := backendCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to configure storage")
			}
			defer safe.Close(ctx, convs)
			defer safe.Close(ctx, memBackend)

			llmClient, err := llmCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to configure LLM client")
			}

			files, ucOpts, err := appCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to configure workspace")
			}
			if indexConversations {
				ucOpts = append(ucOpts, usecase.WithConversationIndexing())
			}

			mem := memory.New(memBackend, embedding.NewHash())
			uc := usecase.New(convs, mem, llmClient, files, ucOpts...)

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc),
				ReadHeaderTimeout: 30 * time.Second,
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
