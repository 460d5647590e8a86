package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"spendtrack/internal/core"
	"spendtrack/internal/log"
)

type appendCall struct {
	path  string
	query string
	body  gsheet.ValueRange
}

func fakeSheets(t *testing.T, status int, updatedRange string) (*Client, *[]appendCall) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []appendCall
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var vr gsheet.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		mu.Lock()
		calls = append(calls, appendCall{path: r.URL.Path, query: r.URL.RawQuery, body: vr})
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"code":500,"message":"backend error"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1","updates":{"updatedRange":"` + updatedRange + `","updatedRows":2}}`))
	}))
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return newClient(svc, Options{SpreadsheetID: "sheet-1", SheetName: "Transactions"}, log.Discard()), &calls
}

func sampleBill() (core.Bill, []core.Transaction) {
	bill := core.Bill{
		ID:                 "bill-1",
		BillingPeriodStart: core.NewDate(2024, 1, 1),
		BillingPeriodEnd:   core.NewDate(2024, 1, 31),
	}
	txs := []core.Transaction{
		{ExpenseName: "GROCERY", Amount: decimal.RequireFromString("12.34"), ExpenseDate: core.NewDate(2024, 1, 15), CardholderName: "ALICE", Bank: "Amex", BillID: "bill-1"},
		{ExpenseName: "REFUND", Amount: decimal.RequireFromString("-5"), ExpenseDate: core.NewDate(2024, 1, 16), CardholderName: "BOB", Bank: "Amex", BillID: "bill-1"},
	}
	return bill, txs
}

func TestClient_ExportBillAppendsRows(t *testing.T) {
	c, calls := fakeSheets(t, http.StatusOK, "Transactions!A5:H6")
	bill, txs := sampleBill()

	ref, err := c.ExportBill(context.Background(), bill, txs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref != "Transactions!A5:H6" {
		t.Errorf("ref = %q", ref)
	}
	if len(*calls) != 1 {
		t.Fatalf("expected one append call, got %d", len(*calls))
	}

	call := (*calls)[0]
	if !strings.Contains(call.path, "/spreadsheets/sheet-1/values/") || !strings.HasSuffix(call.path, ":append") {
		t.Errorf("unexpected path %q", call.path)
	}
	if !strings.Contains(call.query, "valueInputOption=USER_ENTERED") {
		t.Errorf("missing valueInputOption in %q", call.query)
	}
	if len(call.body.Values) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(call.body.Values))
	}
	if got := call.body.Values[1][7]; got != "-5.00" {
		t.Errorf("amount cell = %v, want -5.00", got)
	}
	if got := call.body.Values[0][5]; got != "ALICE" {
		t.Errorf("cardholder cell = %v", got)
	}
}

func TestClient_ExportBillEmpty(t *testing.T) {
	c, calls := fakeSheets(t, http.StatusOK, "")
	bill, _ := sampleBill()

	ref, err := c.ExportBill(context.Background(), bill, nil)
	if err != nil || ref != "" {
		t.Fatalf("unexpected result ref=%q err=%v", ref, err)
	}
	if len(*calls) != 0 {
		t.Errorf("empty bill must not call the API")
	}
}

func TestClient_ExportBillAPIError(t *testing.T) {
	c, _ := fakeSheets(t, http.StatusInternalServerError, "")
	bill, txs := sampleBill()

	_, err := c.ExportBill(context.Background(), bill, txs)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "append to sheet Transactions") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestClient_ExportBillWithoutService(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	bill, txs := sampleBill()
	if _, err := c.ExportBill(context.Background(), bill, txs); err == nil {
		t.Fatal("expected error when service is nil")
	}
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{CredentialsJSON: "{}"}, log.Discard())
	if err == nil || err.Error() != "missing spreadsheet id" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(context.Background(), Options{SpreadsheetID: "id"}, log.Discard())
	if !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("expected ErrNoCredentials, got %v", err)
	}
}

func TestCredentials(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sa.json")
	if err := os.WriteFile(file, []byte(`{"from":"file"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		opts    Options
		want    string
		wantErr bool
	}{
		{name: "inline json wins", opts: Options{CredentialsJSON: `{"from":"env"}`, CredentialsFile: file}, want: `{"from":"env"}`},
		{name: "file", opts: Options{CredentialsFile: file}, want: `{"from":"file"}`},
		{name: "missing file", opts: Options{CredentialsFile: filepath.Join(dir, "nope.json")}, wantErr: true},
		{name: "nothing", opts: Options{}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := credentials(tt.opts)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNewClientDefaultSheetName(t *testing.T) {
	c := newClient(nil, Options{SpreadsheetID: " id "}, log.Discard())
	if c.sheetName != "Transactions" || c.spreadsheetID != "id" {
		t.Errorf("unexpected client %+v", c)
	}
}
