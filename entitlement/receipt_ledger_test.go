package entitlement_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jrsteele09/go-auth-session/entitlement"
	"github.com/stretchr/testify/require"
)

type failingReceipts struct{}

func (failingReceipts) ActiveProductIDs(context.Context) ([]string, error) {
	return nil, errors.New("receipt missing")
}

func TestReceiptLedger(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		active entitlement.StaticReceipts
		want   entitlement.PurchaseState
	}{
		{"none", nil, entitlement.PurchaseState{}},
		{"monthly", entitlement.StaticReceipts{"premium.monthly"}, entitlement.PurchaseState{MonthlyActive: true}},
		{"yearly", entitlement.StaticReceipts{"premium.yearly"}, entitlement.PurchaseState{YearlyActive: true}},
		{"both and unrelated", entitlement.StaticReceipts{"tips.small", "premium.yearly", "premium.monthly"}, entitlement.PurchaseState{MonthlyActive: true, YearlyActive: true}},
		{"unrelated only", entitlement.StaticReceipts{"tips.small"}, entitlement.PurchaseState{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := entitlement.NewReceiptLedger(tt.active, "premium.monthly", "premium.yearly")
			got, err := l.PurchaseState(ctx)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	t.Run("receipt failure", func(t *testing.T) {
		l := entitlement.NewReceiptLedger(failingReceipts{}, "premium.monthly", "premium.yearly")
		_, err := l.PurchaseState(ctx)
		require.Error(t, err)
	})
}

func TestReceiptLedger_EmptyProductIDNeverMatches(t *testing.T) {
	l := entitlement.NewReceiptLedger(entitlement.StaticReceipts{""}, "", "premium.yearly")
	got, err := l.PurchaseState(context.Background())
	require.NoError(t, err)
	require.Equal(t, entitlement.PurchaseState{}, got)
}
