package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Bool("seed", false, "apply the demo seed before serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.migrate(ctx); err != nil {
		return err
	}
	// the in-memory store starts empty, so it is always seeded
	if withSeed, _ := cmd.Flags().GetBool("seed"); withSeed || c.db == nil {
		if _, err := c.initialize(ctx); err != nil {
			return err
		}
	}

	app := c.app()
	errCh := make(chan error, 1)
	go func() {
		c.log.Info("http server listening", "addr", c.cfg.Addr)
		errCh <- app.Listen(c.cfg.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	c.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
