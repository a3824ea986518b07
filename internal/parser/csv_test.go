package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "dataset.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestOpenCSV_ReadsHeaderAndRows(t *testing.T) {
	content := "Primary_Buyer,Item_Description,Quantity,Unit_Of_Measure,Unit_Price,Secondary_Buyer,Primary_Buyer_Contact,Primary_Buyer_Email\n" +
		"Acme,CONN 3585720 GOLD,10,EA,1.50,,Jane,jane@example.com\n" +
		"Acme,BOLT-M8x20,5,EA,0.75,,Jane,jane@example.com\n"
	path := writeTempCSV(t, content)

	it, err := Open(path, "dataset.csv", 0)
	require.NoError(t, err)
	defer it.Close()

	batch, done, err := it.NextBatch(1000)
	require.NoError(t, err)
	assert.True(t, done)
	require.Len(t, batch.Rows, 2)
	assert.Equal(t, "CONN 3585720 GOLD", batch.Rows[0]["Item_Description"])
	assert.Equal(t, "BOLT-M8x20", batch.Rows[1]["Item_Description"])
}

func TestOpenCSV_SkipsLeadingBlankLines(t *testing.T) {
	content := "\n\nPrimary_Buyer,Item_Description,Quantity,Unit_Of_Measure,Unit_Price,Secondary_Buyer,Primary_Buyer_Contact,Primary_Buyer_Email\n" +
		"Acme,WIDGET assy 12-AB,1,EA,2.00,,Jane,jane@example.com\n"
	path := writeTempCSV(t, content)

	it, err := Open(path, "dataset.csv", 0)
	require.NoError(t, err)
	defer it.Close()

	batch, _, err := it.NextBatch(1000)
	require.NoError(t, err)
	require.Len(t, batch.Rows, 1)
	assert.Equal(t, "WIDGET assy 12-AB", batch.Rows[0]["Item_Description"])
}

func TestOpenCSV_SkipRows_ResumesPastAlreadyPersistedData(t *testing.T) {
	content := "Primary_Buyer,Item_Description,Quantity,Unit_Of_Measure,Unit_Price,Secondary_Buyer,Primary_Buyer_Contact,Primary_Buyer_Email\n" +
		"Acme,ROW1,1,EA,1.00,,Jane,jane@example.com\n" +
		"Acme,ROW2,1,EA,1.00,,Jane,jane@example.com\n" +
		"Acme,ROW3,1,EA,1.00,,Jane,jane@example.com\n"
	path := writeTempCSV(t, content)

	it, err := Open(path, "dataset.csv", 2)
	require.NoError(t, err)
	defer it.Close()

	batch, done, err := it.NextBatch(1000)
	require.NoError(t, err)
	assert.True(t, done)
	require.Len(t, batch.Rows, 1)
	assert.Equal(t, "ROW3", batch.Rows[0]["Item_Description"])
}

func TestOpenCSV_BatchSizeBoundsRowsPerCall(t *testing.T) {
	content := "Primary_Buyer,Item_Description,Quantity,Unit_Of_Measure,Unit_Price,Secondary_Buyer,Primary_Buyer_Contact,Primary_Buyer_Email\n"
	for i := 0; i < 5; i++ {
		content += "Acme,ITEM,1,EA,1.00,,Jane,jane@example.com\n"
	}
	path := writeTempCSV(t, content)

	it, err := Open(path, "dataset.csv", 0)
	require.NoError(t, err)
	defer it.Close()

	first, done, err := it.NextBatch(2)
	require.NoError(t, err)
	assert.False(t, done)
	assert.Len(t, first.Rows, 2)

	second, _, err := it.NextBatch(2)
	require.NoError(t, err)
	assert.Len(t, second.Rows, 2)

	third, done, err := it.NextBatch(2)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Len(t, third.Rows, 1)
}

func TestOpen_UnsupportedExtension(t *testing.T) {
	_, err := Open("/tmp/whatever.txt", "whatever.txt", 0)
	assert.Error(t, err)
}
