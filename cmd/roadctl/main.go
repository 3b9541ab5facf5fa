// roadctl is a dev/test client for the SafeRoads API.
package main

import (
	"fmt"
	"os"
	"time"

	"saferoads/client"

	"github.com/spf13/cobra"
)

func main() {
	var (
		serviceURL string
		timeout    time.Duration
	)

	rootCmd := &cobra.Command{
		Use:   "roadctl",
		Short: "roadctl - poke a running SafeRoads service",
		Long: `roadctl calls the SafeRoads HTTP API for development and troubleshooting.

Examples:
  roadctl scan pothole.jpg --lat 22.5726 --lng 88.3639
  roadctl reports
  roadctl emergency --lat 22.5726 --lon 88.3639`,
		SilenceUsage: true,
	}

	defaultURL := os.Getenv("SAFEROADS_URL")
	if defaultURL == "" {
		defaultURL = client.DefaultServiceURL
	}
	rootCmd.PersistentFlags().StringVar(&serviceURL, "server", defaultURL, "SafeRoads base URL")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 60*time.Second, "request timeout")

	newClient := func() *client.Client {
		return client.New(serviceURL, timeout)
	}

	rootCmd.AddCommand(scanCmd(newClient))
	rootCmd.AddCommand(reportsCmd(newClient))
	rootCmd.AddCommand(emergencyCmd(newClient))
	rootCmd.AddCommand(airCmd(newClient))
	rootCmd.AddCommand(configCmd(newClient))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
