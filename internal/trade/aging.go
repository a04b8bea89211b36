package trade

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/shared"
)

// Aging bucket labels, ordered.
var AgingBuckets = []string{"0-30", "31-60", "61-90", "90+"}

// AgingRow is one open document placed in its bucket.
type AgingRow struct {
	DocID       uuid.UUID       `json:"doc_id"`
	DocNo       *int64          `json:"doc_no"`
	ContactID   uuid.UUID       `json:"contact_id"`
	DocDate     time.Time       `json:"doc_date"`
	DueDate     *time.Time      `json:"due_date,omitempty"`
	OpenAmount  decimal.Decimal `json:"open_amount"`
	DaysOverdue int             `json:"days_overdue"`
	Bucket      string          `json:"bucket"`
}

// AgingReport groups open documents by days overdue.
type AgingReport struct {
	AsOf    time.Time                  `json:"as_of"`
	Rows    []AgingRow                 `json:"rows"`
	Totals  map[string]decimal.Decimal `json:"totals"`
	Overall decimal.Decimal            `json:"overall"`
}

// BuildAging buckets the given documents by days overdue at asOf. Overdue
// days count from due_date when present, otherwise the document date.
// Boundaries are inclusive at 30, 60, and 90 days.
func BuildAging(docs []Doc, asOf time.Time) *AgingReport {
	report := &AgingReport{
		AsOf:    asOf,
		Rows:    []AgingRow{},
		Totals:  make(map[string]decimal.Decimal, len(AgingBuckets)),
		Overall: decimal.Zero,
	}
	for _, bucket := range AgingBuckets {
		report.Totals[bucket] = decimal.Zero
	}
	for _, doc := range docs {
		open := shared.Quantize(doc.OpenAmount())
		if !open.IsPositive() {
			continue
		}
		anchor := doc.DocDate
		if doc.DueDate != nil {
			anchor = *doc.DueDate
		}
		days := daysBetween(anchor, asOf)
		bucket := bucketFor(days)
		report.Rows = append(report.Rows, AgingRow{
			DocID:       doc.ID,
			DocNo:       doc.DocNo,
			ContactID:   doc.ContactID,
			DocDate:     doc.DocDate,
			DueDate:     doc.DueDate,
			OpenAmount:  open,
			DaysOverdue: days,
			Bucket:      bucket,
		})
		report.Totals[bucket] = report.Totals[bucket].Add(open)
		report.Overall = report.Overall.Add(open)
	}
	return report
}

func bucketFor(days int) string {
	switch {
	case days <= 30:
		return "0-30"
	case days <= 60:
		return "31-60"
	case days <= 90:
		return "61-90"
	default:
		return "90+"
	}
}

// daysBetween counts whole calendar days from anchor to asOf, floored at 0.
func daysBetween(anchor, asOf time.Time) int {
	a := time.Date(anchor.Year(), anchor.Month(), anchor.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)
	days := int(b.Sub(a).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
