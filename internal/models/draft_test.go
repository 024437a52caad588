package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HISP-Uganda/entrysync/internal/models"
)

func testKey() models.DraftKey {
	return models.DraftKey{
		DatasetID:            "dsA",
		Period:               "202401",
		OrgUnit:              "ouX",
		AttributeOptionCombo: "aocY",
		DataElement:          "deM",
		CategoryOptionCombo:  "cocZ",
	}
}

func TestDraftKeyValidate(t *testing.T) {
	require.NoError(t, testKey().Validate())

	k := testKey()
	k.DataElement = ""
	assert.Error(t, k.Validate())

	k = testKey()
	k.Period = "  "
	assert.Error(t, k.Validate())
}

func TestInstanceScopeMatches(t *testing.T) {
	scope := models.InstanceScope{
		DatasetID:            "dsA",
		Period:               "202401",
		OrgUnit:              "ouX",
		AttributeOptionCombo: "aocY",
	}

	assert.True(t, scope.Matches(testKey()))

	other := testKey()
	other.Period = "202402"
	assert.False(t, scope.Matches(other))

	assert.True(t, models.InstanceScope{}.IsZero())
	assert.False(t, scope.IsZero())
}

func TestDraftToDataValue(t *testing.T) {
	value := "42"
	comment := "verified"
	draft := models.NewDraft(testKey(), &value)
	draft.Comment = &comment

	dv := draft.ToDataValue()
	assert.Equal(t, "deM", dv.DataElement)
	assert.Equal(t, "202401", dv.Period)
	assert.Equal(t, "ouX", dv.OrgUnit)
	assert.Equal(t, "cocZ", dv.CategoryOptionCombo)
	assert.Equal(t, "aocY", dv.AttributeOptionCombo)
	require.NotNil(t, dv.Value)
	assert.Equal(t, "42", *dv.Value)
	assert.Equal(t, "verified", dv.Comment)
}

func TestDraftDeletion(t *testing.T) {
	draft := models.NewDraft(testKey(), nil)

	assert.True(t, draft.IsDeletion())
	assert.Nil(t, draft.ToDataValue().Value)

	value := "1"
	assert.False(t, models.NewDraft(testKey(), &value).IsDeletion())
}
