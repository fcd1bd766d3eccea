package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/stac-catalog/internal/api"
	"github.com/sells-group/stac-catalog/internal/config"
	"github.com/sells-group/stac-catalog/internal/session"
	"github.com/sells-group/stac-catalog/internal/transactions"
)

const shutdownTimeout = 10 * time.Second

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the transactions HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		sess, err := session.Connect(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer sess.Close()

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           buildRouter(sess, cfg),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return eris.Wrap(err, "server shutdown")
			}
			return nil
		})

		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// transactionsConfig wires sess, the configured table names and the bulk
// chunk throttle.
func transactionsConfig(sess *session.Session, c *config.Config) transactions.Config {
	txCfg := transactions.Config{
		Session:         sess,
		ItemTable:       c.Tables.Items,
		CollectionTable: c.Tables.Collections,
	}
	if c.Bulk.ChunksPerSecond > 0 {
		txCfg.ChunkLimiter = rate.NewLimiter(rate.Limit(c.Bulk.ChunksPerSecond), 1)
	}
	return txCfg
}

// buildRouter assembles the HTTP handler for sess.
func buildRouter(sess *session.Session, c *config.Config) http.Handler {
	txCfg := transactionsConfig(sess, c)
	h := api.NewHandler(
		transactions.NewClient(txCfg),
		transactions.NewBulkClient(txCfg),
		c.Server.BaseURL,
		c.Bulk.ChunkSize,
	)
	return api.NewRouter(h, c.Server.AllowedOrigins)
}
