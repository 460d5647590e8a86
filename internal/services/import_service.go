package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"spendtrack/internal/amqp"
	"spendtrack/internal/bank"
	"spendtrack/internal/core"
	"spendtrack/internal/log"
)

var (
	ErrReadCSV    = errors.New("error reading CSV file")
	ErrBillInsert = errors.New("failed to insert credit card bill")
)

// EventPublisher announces committed imports. *amqp.Client implements it.
type EventPublisher interface {
	PublishBillImported(ctx context.Context, msg *amqp.BillImportedMessage) error
}

// ImportRequest carries the raw form values of a statement upload.
type ImportRequest struct {
	Bank               string
	CreditCardID       string
	UserID             string
	BillingPeriodStart string
	BillingPeriodEnd   string
	PaymentDueDate     string
}

// Upload locates the statement file. Temporary files are removed once the
// import finishes, whatever the outcome.
type Upload struct {
	Path      string
	Temporary bool
}

type ImportResult struct {
	BillID   string          `json:"bill_id"`
	TotalDue decimal.Decimal `json:"total_due"`
	Imported int             `json:"imported"`
	Skipped  int             `json:"skipped"`
}

type billPeriod struct {
	start, end, due core.Date
}

// Validate enumerates every required field and checks ids and dates.
func (r ImportRequest) Validate(up Upload) core.ValidationResult {
	res := core.Require(
		core.Field{Name: "file", Value: up.Path},
		core.Field{Name: "bank", Value: r.Bank},
		core.Field{Name: "credit_card_id", Value: r.CreditCardID},
		core.Field{Name: "user_id", Value: r.UserID},
		core.Field{Name: "billing_period_start", Value: r.BillingPeriodStart},
		core.Field{Name: "billing_period_end", Value: r.BillingPeriodEnd},
		core.Field{Name: "payment_due_date", Value: r.PaymentDueDate},
	)
	if !res.Valid() {
		return res
	}

	for _, f := range []core.Field{
		{Name: "credit_card_id", Value: r.CreditCardID},
		{Name: "user_id", Value: r.UserID},
	} {
		if _, err := uuid.Parse(f.Value); err != nil {
			res.AddInvalid(f.Name, "expected a UUID")
		}
	}
	if _, err := r.period(); err != nil {
		res.AddInvalid("billing_period", err.Error())
	}
	return res
}

func (r ImportRequest) period() (billPeriod, error) {
	var p billPeriod
	var err error
	if p.start, err = core.ParseDate(r.BillingPeriodStart); err != nil {
		return p, fmt.Errorf("billing_period_start: %w", err)
	}
	if p.end, err = core.ParseDate(r.BillingPeriodEnd); err != nil {
		return p, fmt.Errorf("billing_period_end: %w", err)
	}
	if p.due, err = core.ParseDate(r.PaymentDueDate); err != nil {
		return p, fmt.Errorf("payment_due_date: %w", err)
	}
	if p.end.Before(p.start.Time) {
		return p, errors.New("billing_period_end is before billing_period_start")
	}
	return p, nil
}

// ImportService turns an uploaded statement into one bill and its expenses.
type ImportService struct {
	store     Store
	users     *UserDirectory
	publisher EventPublisher
	logger    *log.Logger
	events    *log.StructuredLogger
}

// NewImportService wires the import pipeline. publisher may be nil.
func NewImportService(store Store, users *UserDirectory, publisher EventPublisher, logger *log.Logger) *ImportService {
	logger = logger.WithComponent(log.ComponentImport)
	return &ImportService{
		store:     store,
		users:     users,
		publisher: publisher,
		logger:    logger,
		events:    log.NewStructuredLogger(logger),
	}
}

// Import validates the request, normalizes every row of the statement and
// stores the bill with its expenses in a single transaction. Rows without a
// usable date or amount are skipped. The import is not interrupted when the
// caller's context is cancelled.
func (s *ImportService) Import(ctx context.Context, req ImportRequest, up Upload) (ImportResult, error) {
	ctx = context.WithoutCancel(ctx)
	if up.Temporary {
		defer s.removeUpload(ctx, up.Path)
	}

	if err := req.Validate(up).Err(); err != nil {
		return ImportResult{}, err
	}
	b, err := bank.Parse(req.Bank)
	if err != nil {
		return ImportResult{}, err
	}
	period, err := req.period()
	if err != nil {
		return ImportResult{}, err
	}

	userName, err := s.users.Name(ctx, req.UserID)
	if err != nil {
		return ImportResult{}, err
	}

	records, skipped, err := s.readStatement(ctx, b, up.Path, userName)
	if err != nil {
		return ImportResult{}, err
	}

	total := decimal.Zero
	for _, rec := range records {
		total = total.Add(rec.Amount)
	}

	billID, err := s.persist(ctx, req, b, period, records, total)
	if err != nil {
		s.events.LogError(ctx, "Statement import failed", err, log.OpImport,
			log.NewFields().WithUpload(b.String(), req.CreditCardID, req.UserID))
		return ImportResult{}, err
	}

	res := ImportResult{BillID: billID, TotalDue: total, Imported: len(records), Skipped: skipped}
	s.events.LogImportCompleted(ctx, b.String(), req.CreditCardID, req.UserID, billID, total, res.Imported, res.Skipped)
	s.publish(ctx, req, b, res)
	return res, nil
}

func (s *ImportService) readStatement(ctx context.Context, b bank.Bank, path, userName string) ([]bank.Record, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrReadCSV, err)
	}
	defer f.Close()

	var (
		records []bank.Record
		skipped int
	)
	for line, err := range bank.ReadRows(f) {
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %w", ErrReadCSV, err)
		}

		rec, ok := b.Normalize(line.Row)
		if !ok {
			skipped++
			s.logger.WarnContext(ctx, "Invalid row skipped",
				log.FieldBank, b.String(),
				log.FieldRow, line.Number)
			continue
		}
		if rec.Cardholder == "" {
			rec.Cardholder = userName
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}

func (s *ImportService) persist(ctx context.Context, req ImportRequest, b bank.Bank, p billPeriod, records []bank.Record, total decimal.Decimal) (string, error) {
	var billID string
	err := s.store.WithinTx(ctx, func(w ImportWriter) error {
		id, err := w.InsertCreditCardBill(ctx, core.Bill{
			CreditCardID:       req.CreditCardID,
			BillingPeriodStart: p.start,
			BillingPeriodEnd:   p.end,
			TotalDue:           total,
			PaymentDueDate:     p.due,
		})
		if err != nil {
			return fmt.Errorf("%w: %w", ErrBillInsert, err)
		}
		billID = id

		cardholders := make(map[string]string)
		for _, rec := range records {
			chID, ok := cardholders[rec.Cardholder]
			if !ok {
				chID, err = w.InsertOrGetCardholder(ctx, rec.Cardholder, req.CreditCardID, req.UserID)
				if err != nil {
					return fmt.Errorf("cardholder %q: %w", rec.Cardholder, err)
				}
				cardholders[rec.Cardholder] = chID
			}

			if _, err := w.InsertExpense(ctx, core.Expense{
				CardholderID: chID,
				Name:         rec.ExpenseName,
				Amount:       rec.Amount,
				Date:         rec.Date,
				CreditCardID: req.CreditCardID,
				UserID:       req.UserID,
				BillID:       id,
				Bank:         rec.Bank.String(),
			}); err != nil {
				return fmt.Errorf("expense %q: %w", rec.ExpenseName, err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return billID, nil
}

func (s *ImportService) publish(ctx context.Context, req ImportRequest, b bank.Bank, res ImportResult) {
	if s.publisher == nil {
		return
	}
	msg := amqp.NewBillImportedMessage(res.BillID, req.CreditCardID, req.UserID, b.String(), res.Imported, res.TotalDue)
	if err := s.publisher.PublishBillImported(ctx, msg); err != nil {
		s.events.LogError(ctx, "Failed to publish bill imported message", err, log.OpPublish,
			log.NewFields().WithBill(res.BillID, res.TotalDue, res.Imported, res.Skipped))
	}
}

func (s *ImportService) removeUpload(ctx context.Context, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.WarnContext(ctx, "Failed to remove uploaded file", log.FieldFile, path, log.FieldError, err)
	}
}
