package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tbgers/tbgclient/internal/config"
	"github.com/tbgers/tbgclient/internal/logging"
	"github.com/tbgers/tbgclient/internal/server"
	"github.com/tbgers/tbgclient/pkg/api"
)

var (
	servePort     int
	serveHostname string
	serveCORS     bool
	serveChat     bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start a local HTTP gateway to the forum",
	Long: `Start a local HTTP server that exposes the forum as a JSON API, with
forum and chat events streamed over SSE at /event.

Requests run as the configured user's saved session, or as the user named
in the X-TBG-User header.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 4096, "Port to listen on")
	serveCmd.Flags().StringVar(&serveHostname, "hostname", "127.0.0.1", "Hostname to listen on")
	serveCmd.Flags().BoolVar(&serveCORS, "cors", false, "Allow cross-origin requests")
	serveCmd.Flags().BoolVar(&serveChat, "chat", false, "Poll the chat and stream its events")
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := config.GetPaths().EnsurePaths(); err != nil {
		return err
	}
	if _, err := openSession(cmd); err != nil {
		return err
	}

	serverConfig := server.DefaultConfig()
	serverConfig.Hostname = serveHostname
	serverConfig.Port = servePort
	serverConfig.EnableCORS = serveCORS

	srv := server.New(serverConfig, api.OptionsFromConfig(cfg), store)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if serveChat {
		srv.StartChat(ctx, cfg.PollInterval())
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Start()
	}()
	fmt.Fprintf(cmd.OutOrStdout(), "tbgclient %s listening on http://%s:%d\n", Version, serveHostname, servePort)

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logging.Info().Msg("Shutting down gateway")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
	}
	return nil
}
