package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HISP-Uganda/entrysync/internal/drafts"
	"github.com/HISP-Uganda/entrysync/internal/models"
)

var putCmd = &cobra.Command{
	Use:   "put",
	Short: "Queue one data value edit",
	Long: `Put records a local edit for one data value cell. The edit is
written durably to the active account's draft queue and uploaded on the
next sync; editing the same cell again replaces the earlier draft.

Omitting --value queues a deletion of the remote value.`,
	Example: `  entrysync put --dataset dsA --period 202401 --org-unit ouX \
      --attr-combo aocY --element deM --combo cocZ --value 42`,
	RunE: runPut,
}

var (
	putDataset   string
	putPeriod    string
	putOrgUnit   string
	putAttrCombo string
	putElement   string
	putCombo     string
	putValue     string
	putValueSet  bool
	putComment   string
)

func init() {
	rootCmd.AddCommand(putCmd)

	putCmd.Flags().StringVar(&putDataset, "dataset", "", "Dataset id (required)")
	putCmd.Flags().StringVar(&putPeriod, "period", "", "Period (required)")
	putCmd.Flags().StringVar(&putOrgUnit, "org-unit", "", "Organisation unit (required)")
	putCmd.Flags().StringVar(&putAttrCombo, "attr-combo", "", "Attribute option combo (required)")
	putCmd.Flags().StringVar(&putElement, "element", "", "Data element (required)")
	putCmd.Flags().StringVar(&putCombo, "combo", "", "Category option combo (required)")
	putCmd.Flags().StringVar(&putValue, "value", "", "Value (omit to delete the remote value)")
	putCmd.Flags().StringVar(&putComment, "comment", "", "Optional comment")

	for _, f := range []string{"dataset", "period", "org-unit", "attr-combo", "element", "combo"} {
		_ = putCmd.MarkFlagRequired(f)
	}
}

func runPut(cmd *cobra.Command, args []string) error {
	putValueSet = cmd.Flags().Changed("value")

	store, err := openActiveDrafts()
	if err != nil {
		return err
	}

	key := models.DraftKey{
		DatasetID:            putDataset,
		Period:               putPeriod,
		OrgUnit:              putOrgUnit,
		AttributeOptionCombo: putAttrCombo,
		DataElement:          putElement,
		CategoryOptionCombo:  putCombo,
	}

	var value *string
	if putValueSet {
		value = &putValue
	}

	draft := models.NewDraft(key, value)
	if putComment != "" {
		draft.Comment = &putComment
	}

	if err := store.Upsert(draft); err != nil {
		return err
	}

	count, _ := store.Count()
	fmt.Printf("Queued; %d draft(s) pending\n", count)
	return nil
}

// openActiveDrafts resolves the active account and opens its local
// draft store. No network session is needed for local queue operations.
func openActiveDrafts() (drafts.Store, error) {
	info, err := apiClient.Accounts.GetActive()
	if err != nil {
		return nil, fmt.Errorf("no active account, run 'entrysync login' first: %w", err)
	}
	return apiClient.OpenLocal(info)
}
