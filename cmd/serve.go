package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/docbase-dev/docbase/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the knowledge base HTTP server",
	Long: `Starts the HTTP API: document ingestion and listing, hybrid search,
question answering, and a WebSocket endpoint for interactive asking.
The embedding provider is warmed up in the background; /readyz reports
when the server is fully able to answer semantic queries.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Server.Port = port
	}

	embedder, err := createEmbedder(cfg)
	if err != nil {
		return err
	}
	defer embedder.Shutdown()

	// Warm up in the background so the server accepts connections
	// immediately; keyword search works before embeddings are ready.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := embedder.Initialize(ctx); err != nil {
			log.Printf("serve: embedding provider unavailable, keyword-only retrieval: %v", err)
		}
	}()

	provider, err := createLLMProvider(cfg)
	if err != nil {
		return err
	}

	idx, err := openIndex(cfg)
	if err != nil {
		return err
	}
	defer idx.Close()

	retr := buildRetriever(cfg, idx, embedder)
	orch := buildOrchestrator(cfg, retr, provider)
	ingestor := buildIngestor(cfg, idx, embedder)

	srv := server.New(server.Config{
		Port:           cfg.Server.Port,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, ingestor, retr, orch, idx, embedder)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		fmt.Printf("\nReceived %s, shutting down...\n", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
