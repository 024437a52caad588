package models

import (
	"fmt"
	"strings"
	"time"
)

// DraftKey is the natural key of one data value cell. At most one live
// draft exists per key; later edits replace earlier ones.
type DraftKey struct {
	DatasetID            string `json:"dataset_id"`
	Period               string `json:"period"`
	OrgUnit              string `json:"org_unit"`
	AttributeOptionCombo string `json:"attribute_option_combo"`
	DataElement          string `json:"data_element"`
	CategoryOptionCombo  string `json:"category_option_combo"`
}

// Instance returns the form instance the key belongs to.
func (k DraftKey) Instance() InstanceScope {
	return InstanceScope{
		DatasetID:            k.DatasetID,
		Period:               k.Period,
		OrgUnit:              k.OrgUnit,
		AttributeOptionCombo: k.AttributeOptionCombo,
	}
}

// Validate checks that every key segment is present.
func (k DraftKey) Validate() error {
	segments := map[string]string{
		"dataset":                k.DatasetID,
		"period":                 k.Period,
		"org unit":               k.OrgUnit,
		"attribute option combo": k.AttributeOptionCombo,
		"data element":           k.DataElement,
		"category option combo":  k.CategoryOptionCombo,
	}
	for name, v := range segments {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%s is required", name)
		}
	}
	return nil
}

// Draft is one uncommitted local edit. It stays in the store until the
// orchestrator confirms the covering bulk upload succeeded.
type Draft struct {
	DraftKey

	// Value is nil when the edit deletes the remote value.
	Value        *string   `json:"value"`
	Comment      *string   `json:"comment,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// NewDraft creates a draft for a value edit.
func NewDraft(key DraftKey, value *string) Draft {
	return Draft{
		DraftKey:     key,
		Value:        value,
		LastModified: time.Now().UTC(),
	}
}

// IsDeletion reports whether the draft removes the remote value.
func (d Draft) IsDeletion() bool {
	return d.Value == nil
}

// InstanceScope identifies one fillable form: the 4-tuple that narrows a
// scoped sync.
type InstanceScope struct {
	DatasetID            string `json:"dataset_id"`
	Period               string `json:"period"`
	OrgUnit              string `json:"org_unit"`
	AttributeOptionCombo string `json:"attribute_option_combo"`
}

// Matches reports whether a draft key falls inside the scope.
func (s InstanceScope) Matches(k DraftKey) bool {
	return s.DatasetID == k.DatasetID &&
		s.Period == k.Period &&
		s.OrgUnit == k.OrgUnit &&
		s.AttributeOptionCombo == k.AttributeOptionCombo
}

// IsZero reports whether the scope is unset (global sync).
func (s InstanceScope) IsZero() bool {
	return s == InstanceScope{}
}

// Validate checks that every scope segment is present.
func (s InstanceScope) Validate() error {
	segments := map[string]string{
		"dataset":                s.DatasetID,
		"period":                 s.Period,
		"org unit":               s.OrgUnit,
		"attribute option combo": s.AttributeOptionCombo,
	}
	for name, v := range segments {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%s is required", name)
		}
	}
	return nil
}

// DataValue is the wire-facing shape of one staged value.
type DataValue struct {
	DataElement          string  `json:"dataElement"`
	Period               string  `json:"period"`
	OrgUnit              string  `json:"orgUnit"`
	CategoryOptionCombo  string  `json:"categoryOptionCombo"`
	AttributeOptionCombo string  `json:"attributeOptionCombo"`
	Value                *string `json:"value"`
	Comment              string  `json:"comment,omitempty"`
}

// ToDataValue converts a draft to its wire-facing shape.
func (d Draft) ToDataValue() DataValue {
	dv := DataValue{
		DataElement:          d.DataElement,
		Period:               d.Period,
		OrgUnit:              d.OrgUnit,
		CategoryOptionCombo:  d.CategoryOptionCombo,
		AttributeOptionCombo: d.AttributeOptionCombo,
		Value:                d.Value,
	}
	if d.Comment != nil {
		dv.Comment = *d.Comment
	}
	return dv
}
