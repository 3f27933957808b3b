package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/LeJamon/goProgIndex/internal/pager"
	"github.com/LeJamon/goProgIndex/internal/rpc"
)

var (
	// Server flags
	port     int
	bindAddr string
)

const shutdownTimeout = 10 * time.Second

// serverCmd represents the server command (default action)
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the JSON-RPC server",
	Long: `Start the progindex server which provides:
- HTTP JSON-RPC API (fetch_page, account_count, index_stats, ping)
- WebSocket endpoint on /ws
- Health check endpoint on /health

This is the default command when no subcommand is specified.`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)

	// Set server as the default command
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return serverCmd.RunE(cmd, args)
	}

	// Server-specific flags override the [server] section
	serverCmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on")
	serverCmd.Flags().StringVar(&bindAddr, "bind", "", "address to bind to")
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if port != 0 {
		cfg.Server.Port = port
	}
	if bindAddr != "" {
		cfg.Server.Bind = bindAddr
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	sessions, err := rpc.NewSessionCache(cfg.Server.MaxSessions, func(session string) *pager.Fetcher {
		return a.newFetcher(ctx, session)
	})
	if err != nil {
		return err
	}

	rpcServer := rpc.NewServer(rpc.Config{
		Timeout:         cfg.Server.Timeout,
		Admin:           cfg.Server.Admin,
		DefaultPageSize: cfg.Index.DefaultPageSize,
		MaxPageSize:     cfg.Index.MaxPageSize,
		WebSocket:       cfg.Server.WebSocket,
	}, sessions, logger.Named("rpc"))

	listenAddr := net.JoinHostPort(cfg.Server.Bind, strconv.Itoa(cfg.Server.Port))
	httpServer := &http.Server{
		Addr:              listenAddr,
		Handler:           rpcServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("starting progindex server",
		zap.String("addr", listenAddr),
		zap.String("program", a.program.String()),
		zap.String("ledger", cfg.Ledger.Backend),
		zap.Bool("websocket", cfg.Server.WebSocket),
		zap.Bool("snapshots", a.store != nil),
		zap.Strings("methods", rpcServer.Methods()))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		rpcServer.Close()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
