package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/HISP-Uganda/entrysync/internal/client"
	"github.com/HISP-Uganda/entrysync/internal/config"
	"github.com/HISP-Uganda/entrysync/internal/events"
)

var (
	cfgPath string
	verbose bool

	cfg       *config.Config
	logger    *events.Logger
	apiClient *client.Client
)

var rootCmd = &cobra.Command{
	Use:   "entrysync",
	Short: "Offline data entry sync client",
	Long: `Entrysync queues structured data values entered offline and
reconciles them with the remote aggregation server when connectivity
returns.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		cfg, err = config.NewLoader(cfgPath).Load()
		if err != nil {
			return err
		}

		if verbose {
			cfg.Log.Level = "debug"
		}

		logger, err = events.NewLogger(&cfg.Log)
		if err != nil {
			return err
		}

		apiClient, err = client.New(cfg, logger)
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if apiClient != nil {
			return apiClient.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "",
		"Config file path (default: entrysync.json, ~/.config/entrysync/config.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
