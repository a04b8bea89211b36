package trade

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/contacts"
	"github.com/ledgerline/ledgerline/internal/shared"
)

type recordingAudit struct {
	logs []shared.AuditLog
}

func (r *recordingAudit) Record(_ context.Context, log shared.AuditLog) error {
	r.logs = append(r.logs, log)
	return nil
}

func (r *recordingAudit) entityFor(action string) string {
	for _, log := range r.logs {
		if log.Action == action {
			return log.Entity
		}
	}
	return ""
}

func TestAuditEntityMatchesActedOnRecord(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	cs := newStaticContacts()
	audit := &recordingAudit{}
	svc := NewService(receivableConfig(), repo, cs, audit)

	companyID := uuid.New()
	contactID := cs.add(companyID, contacts.KindCustomer)
	control := repo.addAccount()
	offset := repo.addAccount()
	settle := repo.addAccount()

	doc, err := svc.CreateDoc(ctx, companyID, 1, CreateDocInput{
		ContactID:        contactID,
		ControlAccountID: control,
		Lines: []DocLineInput{
			{Description: "Services", Quantity: amt("1"), UnitPrice: amt("100.00"), AccountID: offset},
		},
	})
	require.NoError(t, err)
	_, err = svc.PostDoc(ctx, companyID, doc.ID, 1)
	require.NoError(t, err)

	receipt, err := svc.CreateSettlement(ctx, companyID, 1, CreateSettlementInput{
		ContactID:       contactID,
		Amount:          amt("100.00"),
		SettleAccountID: settle,
		Allocations:     []AllocationInput{{DocID: doc.ID, Amount: amt("100.00")}},
	})
	require.NoError(t, err)
	_, err = svc.PostSettlement(ctx, companyID, receipt.ID, 1)
	require.NoError(t, err)

	require.Equal(t, "invoice", audit.entityFor("invoice.create"))
	require.Equal(t, "invoice", audit.entityFor("invoice.post"))
	require.Equal(t, "receipt", audit.entityFor("receipt.create"))
	require.Equal(t, "receipt", audit.entityFor("receipt.post"))
}
