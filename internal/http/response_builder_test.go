package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"spendtrack/internal/bank"
	"spendtrack/internal/core"
	"spendtrack/internal/services"
)

func TestJSONResponseBuilder_Fields(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().
		Status(http.StatusCreated).
		Message("created").
		Field("id", 7).
		Header("X-Test", "1").
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
	if w.Header().Get("X-Test") != "1" {
		t.Error("custom header not set")
	}
	if w.Body.String() != `{"id":7,"message":"created"}` {
		t.Errorf("Body = %s", w.Body.String())
	}
}

func TestJSONResponseBuilder_Body(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Message("ignored").Body([]string{"a", "b"}).Write(w)

	if w.Body.String() != `["a","b"]` {
		t.Errorf("Body = %s", w.Body.String())
	}
}

func TestJSONResponseBuilder_Unmarshalable(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Body(make(chan int)).Write(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status code = %d, want 500", w.Code)
	}
}

func TestImportErrorResponse(t *testing.T) {
	_, unknownBank := bank.Parse("Chase")
	validation := core.Require(core.Field{Name: "file"}).Err()

	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{name: "validation", err: validation, status: http.StatusBadRequest, message: "Invalid input. Missing required fields: file."},
		{name: "unknown bank", err: unknownBank, status: http.StatusBadRequest, message: "Unsupported bank type: Chase"},
		{name: "unknown user", err: fmt.Errorf("resolve: %w", services.ErrUnknownUser), status: http.StatusBadRequest, message: "User not found for the given user_id"},
		{name: "read csv", err: fmt.Errorf("%w: boom", services.ErrReadCSV), status: http.StatusInternalServerError, message: "Error reading CSV file"},
		{name: "bill insert", err: fmt.Errorf("%w: boom", services.ErrBillInsert), status: http.StatusInternalServerError, message: "Failed to insert credit card bill"},
		{name: "other", err: errors.New("disk full"), status: http.StatusInternalServerError, message: "Error processing CSV file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := importErrorResponse(tt.err)
			if resp.statusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.statusCode, tt.status)
			}
			if got := resp.fields["message"]; got != tt.message {
				t.Errorf("message = %q, want %q", got, tt.message)
			}
		})
	}
}

func TestCapitalize(t *testing.T) {
	for in, want := range map[string]string{"": "", "abc": "Abc", "Abc": "Abc", "1a": "1a"} {
		if got := capitalize(in); got != want {
			t.Errorf("capitalize(%q) = %q, want %q", in, got, want)
		}
	}
}
