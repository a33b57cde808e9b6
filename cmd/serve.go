package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attend/internal/attendance"
	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the attendance web server. It serves the HTTP API for reports,
identity management and a live SSE feed of attendance events. When a
camera is configured the recognition loop runs alongside the server, so
transitions appear on the SSE feed as they happen.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().Bool("no-camera", false, "Serve the API only, without the recognition loop")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	log := logrus.New()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	port, host := resolveServeHostPort(cmd)
	server := web.NewServer(cfg, store, port, host, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	cameraConfigured := cfg.Camera.SnapshotURL != "" || cfg.Camera.FramesDir != ""
	if cameraConfigured && !mustGetBool(cmd, "no-camera") {
		// Recognition runs next to the server; connected SSE clients see
		// transitions live through the hub.
		notifier := attendance.MultiNotifier{
			attendance.LogNotifier{Log: log},
			server.Hub(),
		}
		go func() {
			if err := runRecognitionLoop(ctx, cfg, store, notifier, log); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("recognition loop stopped")
			}
		}()
	} else {
		log.Info("no camera configured, serving API only")
	}

	fmt.Printf("Starting attendance server on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
