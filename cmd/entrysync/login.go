package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Register an account and make it active",
	Long: `Login verifies credentials against the server, registers the
account in the local registry, and marks it active. The account gets
its own isolated draft store.`,
	Example: `  entrysync login --server https://hmis.example.org --username jdoe`,
	RunE:    runLogin,
}

var (
	loginServer   string
	loginUsername string
	loginPassword string
)

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().StringVarP(&loginServer, "server", "s", "",
		"Server base URL (required)")
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "",
		"Username (required)")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "",
		"Password (will prompt if not provided)")

	_ = loginCmd.MarkFlagRequired("server")
	_ = loginCmd.MarkFlagRequired("username")
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if loginPassword == "" {
		var err error
		loginPassword, err = promptPassword(fmt.Sprintf("Password for %s: ", loginUsername))
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
	}

	info, err := apiClient.Accounts.GetOrCreate(loginUsername, loginServer)
	if err != nil {
		return fmt.Errorf("register account: %w", err)
	}

	if err := apiClient.Accounts.SetActive(info.AccountID); err != nil {
		return fmt.Errorf("activate account: %w", err)
	}

	if err := apiClient.OpenSession(info, loginPassword); err != nil {
		return err
	}

	if err := apiClient.Remote.CheckSession(ctx); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	fmt.Printf("Logged in as %s (%s)\n", info.Username, info.AccountID)
	return nil
}

func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(pw)), nil
}
