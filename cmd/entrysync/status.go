package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active account and queue size",
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := apiClient.Accounts.GetActive()
		if err != nil {
			fmt.Println("No active account.")
			return nil
		}

		fmt.Printf("Account: %s (%s@%s)\n", info.AccountID, info.Username, info.ServerURL)

		store, err := apiClient.OpenLocal(info)
		if err != nil {
			return err
		}

		count, err := store.Count()
		if err != nil {
			return err
		}
		fmt.Printf("Queued drafts: %d\n", count)

		if apiClient.Monitor.IsOnline() {
			fmt.Println("Connectivity: online")
		} else {
			fmt.Println("Connectivity: offline")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
