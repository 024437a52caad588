package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/HISP-Uganda/entrysync/internal/models"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Upload queued drafts to the server",
	Long: `Sync drains the active account's draft queue: values are staged
with the server client, uploaded in one bulk call with retry and
backoff, and deleted locally only after the upload is confirmed.

Scope flags narrow the cycle to one form instance; all four must be
given together.`,
	Example: `  entrysync sync
  entrysync sync --force
  entrysync sync --dataset dsA --period 202401 --org-unit ouX --attr-combo aocY`,
	RunE: runSync,
}

var (
	syncForce     bool
	syncDataset   string
	syncPeriod    string
	syncOrgUnit   string
	syncAttrCombo string
	syncPassword  string
)

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().BoolVarP(&syncForce, "force", "f", false,
		"Cancel and supersede a cycle already in flight")
	syncCmd.Flags().StringVar(&syncDataset, "dataset", "", "Dataset id (scoped sync)")
	syncCmd.Flags().StringVar(&syncPeriod, "period", "", "Period (scoped sync)")
	syncCmd.Flags().StringVar(&syncOrgUnit, "org-unit", "", "Organisation unit (scoped sync)")
	syncCmd.Flags().StringVar(&syncAttrCombo, "attr-combo", "", "Attribute option combo (scoped sync)")
	syncCmd.Flags().StringVarP(&syncPassword, "password", "p", "",
		"Password (will prompt if not provided)")
}

func runSync(cmd *cobra.Command, args []string) error {
	info, err := apiClient.Accounts.GetActive()
	if err != nil {
		return fmt.Errorf("no active account, run 'entrysync login' first: %w", err)
	}

	if syncPassword == "" {
		if v := os.Getenv("ENTRYSYNC_PASSWORD"); v != "" {
			syncPassword = v
		} else {
			syncPassword, err = promptPassword(fmt.Sprintf("Password for %s: ", info.Username))
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
		}
	}

	if err := apiClient.OpenSession(info, syncPassword); err != nil {
		return err
	}

	orch, err := apiClient.Sync()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)
	go func() {
		<-interrupts
		fmt.Fprintln(os.Stderr, "\nCancelling...")
		orch.Cancel()
		cancel()
	}()

	scope := models.InstanceScope{
		DatasetID:            syncDataset,
		Period:               syncPeriod,
		OrgUnit:              syncOrgUnit,
		AttributeOptionCombo: syncAttrCombo,
	}

	if scope.IsZero() {
		err = orch.StartSync(ctx, syncForce)
	} else {
		err = orch.StartSyncForInstance(ctx, scope, syncForce)
	}

	status := orch.Status()
	printStatus(status)

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("sync failed: %s", status.Error)
	}
	return nil
}

func printStatus(s models.SyncStatus) {
	switch s.Phase {
	case models.PhaseSucceeded:
		color.Green("Sync succeeded: %d value(s) uploaded, %d still queued", s.UploadedValues, s.QueueSize)
		if s.SkippedStaging > 0 {
			color.Yellow("%d value(s) failed staging and remain queued", s.SkippedStaging)
		}
	case models.PhaseFailed:
		color.Red("Sync failed: %s", s.Error)
		color.Red("%d value(s) remain queued (consecutive failures: %d)", s.QueueSize, s.FailedAttempts)
	default:
		fmt.Printf("Sync state: %s, queue size %d\n", s.Phase, s.QueueSize)
	}
}
