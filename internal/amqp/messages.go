package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// BillImportedMessage announces a committed statement import. Consumers load
// the bill's expenses from the database by BillID.
type BillImportedMessage struct {
	BillID       string          `json:"bill_id"`
	CreditCardID string          `json:"credit_card_id"`
	UserID       string          `json:"user_id"`
	Bank         string          `json:"bank"`
	ExpenseCount int             `json:"expense_count"`
	TotalDue     decimal.Decimal `json:"total_due"`
	Timestamp    time.Time       `json:"timestamp"`
}

var errMissingBillID = errors.New("message has no bill_id")

func NewBillImportedMessage(billID, creditCardID, userID, bank string, expenseCount int, totalDue decimal.Decimal) *BillImportedMessage {
	return &BillImportedMessage{
		BillID:       billID,
		CreditCardID: creditCardID,
		UserID:       userID,
		Bank:         bank,
		ExpenseCount: expenseCount,
		TotalDue:     totalDue,
		Timestamp:    time.Now().UTC(),
	}
}

func (m *BillImportedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BillImportedMessageFromJSON decodes a delivery body. A body without a bill
// id is rejected since it cannot be processed.
func BillImportedMessageFromJSON(data []byte) (*BillImportedMessage, error) {
	var msg BillImportedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.BillID == "" {
		return nil, errMissingBillID
	}
	return &msg, nil
}
