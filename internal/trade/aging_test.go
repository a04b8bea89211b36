package trade

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestBuildAgingBuckets(t *testing.T) {
	asOf := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	due := func(daysAgo int) *time.Time {
		d := asOf.AddDate(0, 0, -daysAgo)
		return &d
	}
	docs := []Doc{
		{ID: uuid.New(), Status: DocPosted, DocDate: asOf, DueDate: due(0), Total: amt("10"), AmountPaid: amt("0")},
		{ID: uuid.New(), Status: DocPosted, DocDate: asOf, DueDate: due(30), Total: amt("20"), AmountPaid: amt("0")},
		{ID: uuid.New(), Status: DocPartiallyPaid, DocDate: asOf, DueDate: due(31), Total: amt("50"), AmountPaid: amt("20")},
		{ID: uuid.New(), Status: DocPosted, DocDate: asOf, DueDate: due(60), Total: amt("40"), AmountPaid: amt("0")},
		{ID: uuid.New(), Status: DocPosted, DocDate: asOf, DueDate: due(90), Total: amt("5"), AmountPaid: amt("0")},
		{ID: uuid.New(), Status: DocPosted, DocDate: asOf, DueDate: due(91), Total: amt("7"), AmountPaid: amt("0")},
	}

	report := BuildAging(docs, asOf)
	require.Len(t, report.Rows, 6)
	require.Equal(t, "30", report.Totals["0-30"].String())
	require.Equal(t, "70", report.Totals["31-60"].String())
	require.Equal(t, "5", report.Totals["61-90"].String())
	require.Equal(t, "7", report.Totals["90+"].String())
	require.Equal(t, "112", report.Overall.String())
}

func TestBuildAgingFallsBackToDocDate(t *testing.T) {
	asOf := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	docDate := asOf.AddDate(0, 0, -45)
	docs := []Doc{
		{ID: uuid.New(), Status: DocPosted, DocDate: docDate, Total: amt("15"), AmountPaid: amt("0")},
	}

	report := BuildAging(docs, asOf)
	require.Len(t, report.Rows, 1)
	require.Equal(t, "31-60", report.Rows[0].Bucket)
	require.Equal(t, 45, report.Rows[0].DaysOverdue)
}

func TestBuildAgingSkipsSettledDocs(t *testing.T) {
	asOf := time.Now()
	docs := []Doc{
		{ID: uuid.New(), Status: DocPaid, DocDate: asOf, Total: amt("15"), AmountPaid: amt("15")},
	}
	report := BuildAging(docs, asOf)
	require.Empty(t, report.Rows)
	require.True(t, report.Overall.IsZero())
}
