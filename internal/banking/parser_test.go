package banking

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCSVTwoRows(t *testing.T) {
	content := "date,description,amount,reference\n" +
		"2026-08-01,Coffee supplies,-42.50,INV-9\n" +
		"2026-08-02,Customer deposit,1200.00,\n"

	rows, err := ParseCSV(content)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "Coffee supplies", rows[0].Description)
	require.Equal(t, "-42.5", rows[0].Amount.String())
	require.Equal(t, "INV-9", rows[0].Reference)
	require.Equal(t, 2026, rows[1].TxnDate.Year())
	require.Equal(t, "1200", rows[1].Amount.String())
}

func TestParseCSVAcceptsTxnDateColumn(t *testing.T) {
	rows, err := ParseCSV("txn_date,amount\n2026-01-15,10.00\n")
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestParseCSVEmptyContent(t *testing.T) {
	_, err := ParseCSV("   \n  ")
	require.ErrorContains(t, err, "CSV content is empty.")
}

func TestParseCSVWhitespaceOnlyContent(t *testing.T) {
	_, err := ParseCSV("\n")
	require.ErrorContains(t, err, "CSV content is empty.")
}

func TestParseCSVMissingRequiredColumns(t *testing.T) {
	_, err := ParseCSV("description,value\nstuff,10\n")
	require.ErrorContains(t, err, "CSV must include date/txn_date and amount columns.")
}

func TestParseCSVSkipsRowsWithoutDate(t *testing.T) {
	content := "date,amount\n" +
		",100.00\n" +
		"2026-03-01,50.00\n"
	rows, err := ParseCSV(content)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "50", rows[0].Amount.String())
}

func TestParseCSVRejectsBadDate(t *testing.T) {
	_, err := ParseCSV("date,amount\n03/01/2026,50.00\n")
	require.ErrorContains(t, err, "invalid date")
}

func TestParseCSVRejectsBadAmount(t *testing.T) {
	_, err := ParseCSV("date,amount\n2026-03-01,fifty\n")
	require.ErrorContains(t, err, "invalid amount")
}
