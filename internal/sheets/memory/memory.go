package memory

import (
	"context"
	"fmt"
	"sync"

	"spendtrack/internal/core"
	"spendtrack/internal/sheets"
)

// Store keeps exported rows in memory. It backs development setups and tests
// where no spreadsheet is configured.
type Store struct {
	mu   sync.Mutex
	rows [][]string
	// bills records which bills were exported and how many times.
	bills map[string]int
}

var _ sheets.TransactionExporter = (*Store)(nil)

func New() *Store {
	return &Store{bills: make(map[string]int)}
}

// ExportBill stores the rows and returns a synthetic range reference.
func (s *Store) ExportBill(_ context.Context, bill core.Bill, txs []core.Transaction) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bills[bill.ID]++
	if len(txs) == 0 {
		return "", nil
	}
	first := len(s.rows) + 1
	for _, tx := range txs {
		s.rows = append(s.rows, sheets.Row(bill, tx))
	}
	return fmt.Sprintf("mem:%d-%d", first, len(s.rows)), nil
}

// Rows returns a copy of every exported row.
func (s *Store) Rows() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.rows))
	for i, r := range s.rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

// Exports reports how many times billID was exported.
func (s *Store) Exports(billID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bills[billID]
}
