package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"spendtrack/internal/core"
)

func TestMemoryStoreExportBill(t *testing.T) {
	s := New()
	bill := core.Bill{
		ID:                 "bill-1",
		BillingPeriodStart: core.NewDate(2024, 1, 1),
		BillingPeriodEnd:   core.NewDate(2024, 1, 31),
	}
	txs := []core.Transaction{
		{ExpenseName: "COFFEE", Amount: decimal.RequireFromString("4.5"), ExpenseDate: core.NewDate(2024, 1, 2), CardholderName: "A", Bank: "Amex"},
		{ExpenseName: "BOOKS", Amount: decimal.RequireFromString("27.84"), ExpenseDate: core.NewDate(2024, 1, 3), CardholderName: "B", Bank: "Amex"},
	}

	ref, err := s.ExportBill(context.Background(), bill, txs)
	if err != nil || ref != "mem:1-2" {
		t.Fatalf("unexpected export: ref=%q err=%v", ref, err)
	}

	rows := s.Rows()
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	want := []string{"bill-1", "2024-01-01", "2024-01-31", "2024-01-02", "COFFEE", "A", "Amex", "4.50"}
	for i, v := range want {
		if rows[0][i] != v {
			t.Errorf("column %d = %q, want %q", i, rows[0][i], v)
		}
	}

	ref, err = s.ExportBill(context.Background(), bill, txs[:1])
	if err != nil || ref != "mem:3-3" {
		t.Fatalf("unexpected second export: ref=%q err=%v", ref, err)
	}
	if got := s.Exports("bill-1"); got != 2 {
		t.Errorf("Exports = %d, want 2", got)
	}
}

func TestMemoryStoreEmptyBill(t *testing.T) {
	s := New()
	ref, err := s.ExportBill(context.Background(), core.Bill{ID: "empty"}, nil)
	if err != nil || ref != "" {
		t.Fatalf("unexpected export: ref=%q err=%v", ref, err)
	}
	if len(s.Rows()) != 0 || s.Exports("empty") != 1 {
		t.Fatalf("empty bill should be recorded without rows")
	}
}

func TestRowsReturnsCopy(t *testing.T) {
	s := New()
	_, _ = s.ExportBill(context.Background(), core.Bill{ID: "b"}, []core.Transaction{{ExpenseName: "X"}})
	rows := s.Rows()
	rows[0][4] = "changed"
	if s.Rows()[0][4] != "X" {
		t.Fatal("Rows must not expose internal state")
	}
}
