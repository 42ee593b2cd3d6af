package entitlement

import (
	"context"

	"github.com/pkg/errors"
)

// Receipts lists the product identifiers the platform store reports as
// currently active for this device.
type Receipts interface {
	ActiveProductIDs(ctx context.Context) ([]string, error)
}

// ReceiptLedger is a PurchaseLedger that classifies active product
// identifiers as monthly or yearly.
type ReceiptLedger struct {
	receipts  Receipts
	monthlyID string
	yearlyID  string
}

var _ PurchaseLedger = (*ReceiptLedger)(nil)

func NewReceiptLedger(receipts Receipts, monthlyProductID, yearlyProductID string) *ReceiptLedger {
	return &ReceiptLedger{
		receipts:  receipts,
		monthlyID: monthlyProductID,
		yearlyID:  yearlyProductID,
	}
}

func (l *ReceiptLedger) PurchaseState(ctx context.Context) (PurchaseState, error) {
	ids, err := l.receipts.ActiveProductIDs(ctx)
	if err != nil {
		return PurchaseState{}, errors.Wrap(err, "[ReceiptLedger.PurchaseState] active products")
	}

	var state PurchaseState
	for _, id := range ids {
		switch id {
		case "":
		case l.monthlyID:
			state.MonthlyActive = true
		case l.yearlyID:
			state.YearlyActive = true
		}
	}
	return state, nil
}

// StaticReceipts reports a fixed set of active products. Hosts without a
// platform store configure it from the environment.
type StaticReceipts []string

func (s StaticReceipts) ActiveProductIDs(context.Context) ([]string, error) {
	return append([]string(nil), s...), nil
}
