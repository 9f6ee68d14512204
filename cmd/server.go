package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stagebox/stagebox/internal/config"
	"github.com/stagebox/stagebox/internal/server"
	"github.com/stagebox/stagebox/internal/store"
)

var serverPort int

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the stagebox backend server",
	Long:  `Starts the HTTP backend: upload, file tree, content, static serving, and the embedded viewer.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if cmd.Flags().Changed("port") {
			cfg.Port = serverPort
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		dbPath := filepath.Join(cfg.DataDir, "stagebox.db")
		db, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		srv := server.New(server.Config{
			Port:           cfg.Port,
			DataDir:        cfg.DataDir,
			AllowAll:       cfg.AllowAllOrigins,
			IgnoreGlobs:    cfg.IgnoreGlobs,
			MaxUploadBytes: cfg.MaxUploadMB << 20,
		}, db)

		// Graceful shutdown.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			srv.Shutdown(context.Background())
		}()

		fmt.Fprintf(os.Stderr, "stagebox server v%s starting on port %d\n", Version, cfg.Port)
		fmt.Fprintf(os.Stderr, "  Database: %s\n", dbPath)
		fmt.Fprintf(os.Stderr, "  Apps: %s\n", filepath.Join(cfg.DataDir, "apps"))

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 8080, "Port to listen on")
	rootCmd.AddCommand(serverCmd)
}
