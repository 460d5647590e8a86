// Package http provides the JSON API of the service.
//
// This file implements a small builder for JSON responses. Every error the
// API returns is an object with a single "message" field.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"spendtrack/internal/bank"
	"spendtrack/internal/core"
	"spendtrack/internal/log"
	"spendtrack/internal/services"
)

// JSONResponseBuilder assembles a JSON response. Body replaces any fields
// set with Message or Field.
type JSONResponseBuilder struct {
	statusCode int
	fields     map[string]any
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Message sets the "message" field.
func (b *JSONResponseBuilder) Message(msg string) *JSONResponseBuilder {
	return b.Field("message", msg)
}

// Field adds a top-level field to an object response.
func (b *JSONResponseBuilder) Field(name string, value any) *JSONResponseBuilder {
	if b.fields == nil {
		b.fields = make(map[string]any)
	}
	b.fields[name] = value
	return b
}

// Body sets the whole payload, e.g. an array.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	payload := b.body
	if payload == nil {
		payload = b.fields
	}

	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	data, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"Internal server error"}`))
		return
	}
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(data)
}

// ErrorResponse creates a {"message": ...} response with the given status.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Message(message)
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// importErrorResponse maps an ImportService failure to its HTTP response.
// Validation problems are 400; everything else is a 500 whose message names
// the stage that failed.
func importErrorResponse(err error) *JSONResponseBuilder {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		resp := BadRequestError("Invalid input. " + capitalize(verr.Error()) + ".")
		if len(verr.Result.Missing) > 0 {
			resp.Field("missing", verr.Result.Missing)
		}
		if len(verr.Result.Invalid) > 0 {
			resp.Field("invalid", verr.Result.Invalid)
		}
		return resp
	case errors.Is(err, bank.ErrUnknownBank):
		return BadRequestError(capitalize(err.Error()))
	case errors.Is(err, services.ErrUnknownUser):
		return BadRequestError("User not found for the given user_id")
	case errors.Is(err, services.ErrReadCSV):
		return InternalServerError("Error reading CSV file")
	case errors.Is(err, services.ErrBillInsert):
		return InternalServerError("Failed to insert credit card bill")
	default:
		return InternalServerError("Error processing CSV file")
	}
}

// writeImportError writes the response for err and logs server-side failures.
func writeImportError(w http.ResponseWriter, r *http.Request, err error) {
	resp := importErrorResponse(err)
	if resp.statusCode >= http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Statement upload failed",
			log.FieldError, err,
			log.FieldOperation, log.OpImport)
	}
	resp.Write(w)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	if c := s[0]; c >= 'a' && c <= 'z' {
		return string(c-'a'+'A') + s[1:]
	}
	return s
}
