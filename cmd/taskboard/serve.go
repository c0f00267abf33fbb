package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fentz26/taskboard/internal/api"
	"github.com/fentz26/taskboard/internal/audit"
	"github.com/fentz26/taskboard/internal/store"
)

var (
	listenAddr string
	dbPath     string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the document service",
	Long:  `Starts the document service which stores tasks and streams their changes to clients.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (overrides config)")
	serveCmd.Flags().StringVar(&dbPath, "db", "", "Path to SQLite database (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if listenAddr == "" {
		listenAddr = cfg.Server.Listen
	}
	if dbPath == "" {
		dbPath = cfg.Server.DBPath
	}
	log.Println("Starting taskboard document service...")

	s, err := store.New(dbPath)
	if err != nil {
		return err
	}

	service := api.NewService(s, audit.NewRecorder(s))
	server := api.NewServer(service, listenAddr)

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		err := server.Start()
		if err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case sig := <-sigCh:
		log.Printf("Received signal %v, initiating graceful shutdown...", sig)
	case err := <-serverErr:
		if err != nil {
			log.Printf("Server error: %v", err)
			s.Close()
			return err
		}
	}

	// Long-poll requests finish within api.MaxWait.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Println("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Closing database connection...")
	if err := s.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}

	log.Println("Shutdown complete")
	return nil
}
