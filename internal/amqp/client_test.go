package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
		{64, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"refused", errors.New("dial tcp: connection refused"), true},
		{"closed channel", errors.New("message channel closed"), true},
		{"eof", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"other error", errors.New("some other error"), false},
		{"validation error", errors.New("invalid input"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestClient_CircuitBreaker(t *testing.T) {
	client := &Client{exchangeName: "spendtrack", queueName: "bill_imported"}

	t.Run("initial state is closed", func(t *testing.T) {
		if client.isCircuitOpen() {
			t.Error("circuit should be closed initially")
		}
	})

	t.Run("failures below threshold keep circuit closed", func(t *testing.T) {
		for i := 0; i < maxFailures-1; i++ {
			client.recordFailure()
		}
		if client.isCircuitOpen() {
			t.Error("circuit should still be closed")
		}
	})

	t.Run("reaching threshold opens circuit", func(t *testing.T) {
		client.recordFailure()
		if !client.isCircuitOpen() {
			t.Error("circuit should be open after max failures")
		}
	})

	t.Run("open circuit becomes half-open after timeout", func(t *testing.T) {
		client.lastFailure = time.Now().Add(-openTimeout - time.Second)
		if client.isCircuitOpen() {
			t.Error("circuit should allow a trial call after timeout")
		}
		if atomic.LoadInt32(&client.state) != StateHalfOpen {
			t.Error("state should be half-open")
		}
	})

	t.Run("failure while half-open reopens immediately", func(t *testing.T) {
		client.recordFailure()
		if atomic.LoadInt32(&client.state) != StateOpen {
			t.Error("state should be open again")
		}
	})

	t.Run("success closes circuit", func(t *testing.T) {
		client.recordSuccess()
		if client.isCircuitOpen() || atomic.LoadInt64(&client.failureCount) != 0 {
			t.Error("success should reset the breaker")
		}
	})
}

func TestClient_PublishFailsFast(t *testing.T) {
	msg := NewBillImportedMessage("bill-1", "card-1", "user-1", "Amex", 2, decimal.RequireFromString("10.50"))

	t.Run("open circuit", func(t *testing.T) {
		client := &Client{state: StateOpen, lastFailure: time.Now()}
		err := client.PublishBillImported(context.Background(), msg)
		if !errors.Is(err, ErrCircuitOpen) {
			t.Fatalf("expected ErrCircuitOpen, got %v", err)
		}
		if !strings.Contains(err.Error(), "bill-1") {
			t.Errorf("error should name the bill, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		client := &Client{}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := client.PublishBillImported(ctx, msg); err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})
}

func TestBillImportedMessageFromJSON(t *testing.T) {
	body := []byte(`{"bill_id":"b-1","credit_card_id":"c-1","user_id":"u-1","bank":"RBC","expense_count":3,"total_due":"12.30","timestamp":"2024-01-01T12:00:00Z"}`)

	msg, err := BillImportedMessageFromJSON(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.BillID != "b-1" || msg.Bank != "RBC" || msg.ExpenseCount != 3 {
		t.Errorf("unexpected message %+v", msg)
	}
	if !msg.TotalDue.Equal(decimal.RequireFromString("12.3")) {
		t.Errorf("TotalDue = %s", msg.TotalDue)
	}

	if _, err := BillImportedMessageFromJSON([]byte(`{"bank":"RBC"}`)); err == nil {
		t.Error("message without bill_id should be rejected")
	}
	if _, err := BillImportedMessageFromJSON([]byte(`not json`)); err == nil {
		t.Error("invalid JSON should be rejected")
	}
}

func TestNewBillImportedMessage(t *testing.T) {
	msg := NewBillImportedMessage("b", "c", "u", "Scotia", 1, decimal.Zero)
	if msg.Timestamp.IsZero() || time.Since(msg.Timestamp) > time.Second {
		t.Error("timestamp should be recent")
	}
}
