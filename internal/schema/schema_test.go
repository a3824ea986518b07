package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateHeaders_AllPresent(t *testing.T) {
	incoming := []string{
		"Unit_Price", "Primary_Buyer", "Item_Description", "Quantity",
		"Unit_Of_Measure", "Secondary_Buyer", "Primary_Buyer_Contact",
		"Primary_Buyer_Email", "Extra_Column",
	}
	assert.NoError(t, ValidateHeaders(incoming))
}

func TestValidateHeaders_CaseAndSpaceInsensitive(t *testing.T) {
	incoming := []string{
		" primary_buyer ", "ITEM_DESCRIPTION", "quantity", "unit_of_measure",
		"unit_price", "secondary_buyer", "primary_buyer_contact", "primary_buyer_email",
	}
	assert.NoError(t, ValidateHeaders(incoming))
}

func TestValidateHeaders_MissingColumn(t *testing.T) {
	incoming := []string{"Primary_Buyer", "Item_Description", "Quantity"}
	err := ValidateHeaders(incoming)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unit_Price")
}

func TestLocateHeaderRow_SkipsLeadingBlankRows(t *testing.T) {
	rows := [][]string{
		{"", ""},
		{"some title", ""},
		CanonicalHeaders,
		{"ACME", "WIDGET"},
	}
	idx, ok := LocateHeaderRow(rows, 20)
	require.True(t, ok)
	assert.Equal(t, 2, idx)
}

func TestLocateHeaderRow_NoMatch(t *testing.T) {
	rows := [][]string{{"a", "b"}, {"c", "d"}}
	_, ok := LocateHeaderRow(rows, 20)
	assert.False(t, ok)
}

// S1 from the end-to-end scenarios: three descriptions with known derived
// part numbers.
func TestDerivePartNumber_S1WorkedExample(t *testing.T) {
	tests := []struct {
		name        string
		description string
		expect      string
	}{
		{"numeric token wins over plain-letter tokens", "CONN 3585720 GOLD", "3585720"},
		{"single mixed-alnum token", "BOLT-M8x20", "BOLT-M8x20"},
		{"mixed-alnum token among plain words", "WIDGET assy 12-AB", "12-AB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			part, ok := DerivePartNumber(tt.description)
			require.True(t, ok)
			assert.Equal(t, tt.expect, part)
		})
	}
}

func TestDerivePartNumber_PicksLongestMixedToken(t *testing.T) {
	part, ok := DerivePartNumber("X1 ABC123456 Y2Z")
	require.True(t, ok)
	assert.Equal(t, "ABC123456", part)
}

func TestDerivePartNumber_FallbackPicksLongestPlainToken(t *testing.T) {
	// No token mixes letters and digits; fallback picks the longest token
	// of length >= 3, not the first one.
	part, ok := DerivePartNumber("AB CONNECTOR assy")
	require.True(t, ok)
	assert.Equal(t, "CONNECTOR", part)
}

func TestDerivePartNumber_NoTokenLongEnough(t *testing.T) {
	_, ok := DerivePartNumber("a b")
	assert.False(t, ok)
}

func TestDerivePartNumber_EmptyDescription(t *testing.T) {
	_, ok := DerivePartNumber("")
	assert.False(t, ok)
}

func TestDerivePartNumber_StripsFloatArtifact(t *testing.T) {
	part, ok := DerivePartNumber("CONN 3585720.0 GOLD")
	require.True(t, ok)
	assert.Equal(t, "3585720", part)
}

func TestDerivePartNumber_IsDeterministic(t *testing.T) {
	first, _ := DerivePartNumber("CONN 3585720 GOLD ABC123")
	second, _ := DerivePartNumber("CONN 3585720 GOLD ABC123")
	assert.Equal(t, first, second)
}

func TestNormalizeRow_ProjectsAndDerives(t *testing.T) {
	raw := map[string]string{
		"Primary_Buyer":         "Acme",
		"Item_Description":      "CONN 3585720 GOLD",
		"Quantity":              "1,200",
		"Unit_Of_Measure":       "EA",
		"Unit_Price":            "12.50",
		"Secondary_Buyer":       "",
		"Primary_Buyer_Contact": "Jane Doe",
		"Primary_Buyer_Email":   "jane@example.com",
	}

	row, errs := NormalizeRow(raw)
	assert.Empty(t, errs)
	assert.Equal(t, "Acme", row.PrimaryBuyer)
	assert.Equal(t, int64(1200), row.Quantity)
	assert.Equal(t, 12.50, row.UnitPrice)
	assert.Equal(t, "3585720", row.PartNumber)
	assert.True(t, row.HasPartNumber)
}

func TestNormalizeRow_MissingFieldsNullFilled(t *testing.T) {
	raw := map[string]string{"Item_Description": "WIDGET assy 12-AB"}
	row, errs := NormalizeRow(raw)
	assert.Empty(t, errs)
	assert.Equal(t, "", row.PrimaryBuyer)
	assert.Equal(t, int64(0), row.Quantity)
	assert.Equal(t, "12-AB", row.PartNumber)
}

func TestNormalizeRow_InvalidQuantity_ReportsError(t *testing.T) {
	raw := map[string]string{
		"Item_Description": "BOLT-M8x20",
		"Quantity":         "not a number",
	}
	_, errs := NormalizeRow(raw)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "quantity")
}

func TestNormalizeRow_CaseInsensitiveLookup(t *testing.T) {
	raw := map[string]string{"item_description": "BOLT-M8x20", "quantity": "5"}
	row, errs := NormalizeRow(raw)
	assert.Empty(t, errs)
	assert.Equal(t, int64(5), row.Quantity)
}
