package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/HISP-Uganda/entrysync/internal/models"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Manage registered accounts",
}

var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts, most recently used first",
	RunE: func(cmd *cobra.Command, args []string) error {
		accounts, err := apiClient.Accounts.List()
		if err != nil {
			return err
		}

		activeID := ""
		if active, err := apiClient.Accounts.GetActive(); err == nil {
			activeID = active.AccountID
		}

		if len(accounts) == 0 {
			fmt.Println("No accounts registered. Run 'entrysync login' first.")
			return nil
		}

		for _, a := range accounts {
			marker := " "
			if a.AccountID == activeID {
				marker = color.GreenString("*")
			}
			fmt.Printf("%s %s  %s@%s  last used %s\n",
				marker, a.AccountID, a.Username, a.ServerURL,
				a.LastUsed.Local().Format(time.RFC822))
		}
		return nil
	},
}

var accountsSwitchCmd = &cobra.Command{
	Use:   "switch <account-id>",
	Short: "Make an account active",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := apiClient.Accounts.SetActive(args[0]); err != nil {
			return err
		}
		fmt.Printf("Active account: %s\n", args[0])
		return nil
	},
}

var accountsRemoveCmd = &cobra.Command{
	Use:   "remove <account-id>",
	Short: "Remove an account and its local draft store",
	RunE:  runAccountsRemove,
	Args:  cobra.ExactArgs(1),
}

func runAccountsRemove(cmd *cobra.Command, args []string) error {
	id := args[0]

	// Resolve store addressing before the registry entry disappears.
	var localInfo, found = resolveAccount(id)

	removed, err := apiClient.Accounts.Remove(id)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("account %s not found", id)
	}

	if found {
		if err := apiClient.RemoveAccountData(localInfo); err != nil {
			return err
		}
	}

	fmt.Printf("Removed account %s\n", id)
	return nil
}

func resolveAccount(id string) (models.AccountInfo, bool) {
	accounts, err := apiClient.Accounts.List()
	if err != nil {
		return models.AccountInfo{}, false
	}
	for _, a := range accounts {
		if a.AccountID == id {
			return a, true
		}
	}
	return models.AccountInfo{}, false
}

func init() {
	rootCmd.AddCommand(accountsCmd)
	accountsCmd.AddCommand(accountsListCmd)
	accountsCmd.AddCommand(accountsSwitchCmd)
	accountsCmd.AddCommand(accountsRemoveCmd)
}
