package cmd

import (
	"fmt"

	"github.com/stagebox/stagebox/internal/client"
	"github.com/stagebox/stagebox/internal/config"
)

// apiClient builds a client from the loaded configuration.
func apiClient() (*client.Client, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return client.New(cfg.ServerURL), nil
}

// formatSize renders a byte count for table output.
func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// shortID trims a UUID for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
