package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect or drain the pending draft queue",
}

var queueShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List queued drafts for the active account",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openActiveDrafts()
		if err != nil {
			return err
		}

		queued, err := store.ListAll()
		if err != nil {
			return err
		}

		if len(queued) == 0 {
			fmt.Println("Queue is empty.")
			return nil
		}

		for _, d := range queued {
			value := "<delete>"
			if d.Value != nil {
				value = *d.Value
			}
			fmt.Printf("%s  %s/%s/%s  %s.%s = %s\n",
				d.LastModified.Local().Format(time.RFC822),
				d.DatasetID, d.Period, d.OrgUnit,
				d.DataElement, d.CategoryOptionCombo, value)
		}
		fmt.Printf("%d draft(s) queued\n", len(queued))
		return nil
	},
}

var queueClearYes bool

var queueClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Discard all queued drafts without uploading",
	Long: `Clear permanently discards every queued draft for the active
account. The values are lost; nothing is sent to the server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openActiveDrafts()
		if err != nil {
			return err
		}

		count, err := store.Count()
		if err != nil {
			return err
		}
		if count == 0 {
			fmt.Println("Queue is already empty.")
			return nil
		}

		if !queueClearYes {
			fmt.Printf("Discard %d queued draft(s) without uploading? [y/N]: ", count)
			reader := bufio.NewReader(os.Stdin)
			answer, _ := reader.ReadString('\n')
			if strings.ToLower(strings.TrimSpace(answer)) != "y" {
				fmt.Println("Aborted.")
				return nil
			}
		}

		if err := store.DeleteAll(); err != nil {
			return err
		}
		fmt.Printf("Discarded %d draft(s)\n", count)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(queueCmd)
	queueCmd.AddCommand(queueShowCmd)
	queueCmd.AddCommand(queueClearCmd)

	queueClearCmd.Flags().BoolVarP(&queueClearYes, "yes", "y", false,
		"Skip the confirmation prompt")
}
