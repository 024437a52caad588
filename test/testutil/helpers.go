// Package testutil provides shared helpers for tests.
package testutil

import (
	"io"
	"time"

	"github.com/HISP-Uganda/entrysync/internal/events"
	"github.com/HISP-Uganda/entrysync/internal/models"
)

// NewTestLogger creates a silent logger for tests.
func NewTestLogger() *events.Logger {
	return events.NewTestLogger(events.ErrorLevel, "text", io.Discard)
}

// DraftKey builds a draft key with recognisable defaults; pass a data
// element to vary the cell inside the default instance.
func DraftKey(dataElement string) models.DraftKey {
	return models.DraftKey{
		DatasetID:            "dsA",
		Period:               "202401",
		OrgUnit:              "ouX",
		AttributeOptionCombo: "aocY",
		DataElement:          dataElement,
		CategoryOptionCombo:  "cocZ",
	}
}

// Draft builds a draft carrying the given value.
func Draft(dataElement, value string) models.Draft {
	d := models.NewDraft(DraftKey(dataElement), &value)
	// Spread modification times so ordering assertions are stable.
	d.LastModified = baseTime.Add(time.Duration(sequence(dataElement)) * time.Second)
	return d
}

var baseTime = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func sequence(s string) int {
	n := 0
	for _, r := range s {
		n += int(r)
	}
	return n % 3600
}
