package worker

import (
	"context"
	"errors"
	"fmt"

	"spendtrack/internal/amqp"
	"spendtrack/internal/cache"
	"spendtrack/internal/core"
	"spendtrack/internal/log"
	"spendtrack/internal/sheets"
	"spendtrack/internal/storage"
)

// BillSource loads a committed bill and its transactions. *storage.Repository
// implements it.
type BillSource interface {
	GetBill(ctx context.Context, billID string) (core.Bill, error)
	BillTransactions(ctx context.Context, billID string) ([]core.Transaction, error)
}

// Consumer delivers bill-imported events. *amqp.Client implements it.
type Consumer interface {
	ConsumeBillImported(ctx context.Context, handler func(context.Context, *amqp.BillImportedMessage) error) error
}

// ExportWorker copies every imported bill to an external ledger.
type ExportWorker struct {
	bills    BillSource
	exporter sheets.TransactionExporter
	// exported remembers bills already written so broker redeliveries do not
	// append the same rows twice. May be nil.
	exported *cache.LRUCache[string]
	logger   *log.Logger
}

func NewExportWorker(bills BillSource, exporter sheets.TransactionExporter, exported *cache.LRUCache[string], logger *log.Logger) *ExportWorker {
	return &ExportWorker{
		bills:    bills,
		exporter: exporter,
		exported: exported,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// Run consumes events until ctx is cancelled.
func (w *ExportWorker) Run(ctx context.Context, c Consumer) error {
	w.logger.InfoContext(ctx, "Export worker started")
	err := c.ConsumeBillImported(ctx, w.HandleBillImported)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// HandleBillImported exports one bill. A bill that no longer exists is
// acknowledged and dropped; any other failure is returned so the message is
// redelivered.
func (w *ExportWorker) HandleBillImported(ctx context.Context, msg *amqp.BillImportedMessage) error {
	logger := w.logger.With(log.FieldBillID, msg.BillID, log.FieldBank, msg.Bank)

	if w.exported != nil {
		if ref, ok := w.exported.Get(msg.BillID); ok {
			logger.InfoContext(ctx, "Bill already exported, skipping", "range", ref)
			return nil
		}
	}

	bill, err := w.bills.GetBill(ctx, msg.BillID)
	if errors.Is(err, storage.ErrNotFound) {
		logger.WarnContext(ctx, "Bill not found, dropping message")
		return nil
	}
	if err != nil {
		return fmt.Errorf("get bill: %w", err)
	}

	txs, err := w.bills.BillTransactions(ctx, msg.BillID)
	if err != nil {
		return fmt.Errorf("load bill transactions: %w", err)
	}
	if len(txs) != msg.ExpenseCount {
		logger.WarnContext(ctx, "Expense count differs from event",
			"expected", msg.ExpenseCount,
			log.FieldCount, len(txs))
	}

	ref, err := w.exporter.ExportBill(ctx, bill, txs)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to export bill", log.FieldError, err)
		return fmt.Errorf("export bill: %w", err)
	}
	if w.exported != nil {
		w.exported.Set(msg.BillID, ref)
	}

	logger.InfoContext(ctx, "Bill exported",
		log.FieldCount, len(txs),
		log.FieldTotalDue, bill.TotalDue.StringFixed(2))
	return nil
}
