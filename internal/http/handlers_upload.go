package http

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"spendtrack/internal/log"
	"spendtrack/internal/services"
)

const maxFormValueBytes = 4 << 10

// errSaveUpload marks failures of the server's own filesystem while storing
// an upload, as opposed to a malformed request body.
var errSaveUpload = errors.New("save upload")

// handleUploadCSV streams the statement to the upload directory and runs the
// import. The stored file is removed by the import service once it is done.
func (s *Server) handleUploadCSV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	}

	req, path, err := s.readUploadForm(r)
	if err != nil {
		if path != "" {
			_ = os.Remove(path)
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ErrorResponse(http.StatusRequestEntityTooLarge,
				fmt.Sprintf("File too large. Maximum upload size is %d bytes.", tooLarge.Limit)).Write(w)
			return
		}
		if errors.Is(err, errSaveUpload) {
			log.FromContext(ctx).ErrorContext(ctx, "Failed to store uploaded file",
				log.FieldError, err,
				log.FieldOperation, log.OpImport,
				log.FieldFile, path)
			InternalServerError("Error saving uploaded file").Write(w)
			return
		}
		log.FromContext(ctx).WarnContext(ctx, "Malformed upload", log.FieldError, err)
		BadRequestError("Invalid multipart form data").Write(w)
		return
	}

	res, err := s.importer.Import(ctx, req, services.Upload{Path: path, Temporary: path != ""})
	if err != nil {
		writeImportError(w, r, err)
		return
	}

	NewJSONResponse().
		Message("CSV file uploaded and processed successfully.").
		Field("bill_id", res.BillID).
		Field("total_due", res.TotalDue).
		Field("imported", res.Imported).
		Field("skipped", res.Skipped).
		Write(w)
}

// readUploadForm walks the multipart body once. Text fields are collected
// into the request and the "file" part is written to disk as
// <unix millis>-<base name>. The returned path is set as soon as the file
// exists, even when a later part fails.
func (s *Server) readUploadForm(r *http.Request) (services.ImportRequest, string, error) {
	var (
		req  services.ImportRequest
		path string
	)
	mr, err := r.MultipartReader()
	if err != nil {
		return req, "", err
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return req, path, nil
		}
		if err != nil {
			return req, path, err
		}

		if part.FormName() == "file" && part.FileName() != "" {
			if path != "" {
				part.Close()
				continue
			}
			path, err = s.saveUpload(part)
			part.Close()
			if err != nil {
				return req, path, err
			}
			continue
		}

		value, err := io.ReadAll(io.LimitReader(part, maxFormValueBytes))
		part.Close()
		if err != nil {
			return req, path, err
		}
		v := sanitizeInput(string(value))
		switch part.FormName() {
		case "bank":
			req.Bank = v
		case "credit_card_id":
			req.CreditCardID = v
		case "user_id":
			req.UserID = v
		case "billing_period_start":
			req.BillingPeriodStart = v
		case "billing_period_end":
			req.BillingPeriodEnd = v
		case "payment_due_date":
			req.PaymentDueDate = v
		}
	}
}

// saveUpload copies the file part to disk. Errors on the disk side wrap
// errSaveUpload; errors reading the part are returned as they are.
func (s *Server) saveUpload(part *multipart.Part) (string, error) {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create upload dir: %w", errSaveUpload, err)
	}
	name := filepath.Base(filepath.Clean("/" + strings.ReplaceAll(part.FileName(), `\`, "/")))
	if name == "/" || name == "." {
		name = "upload.csv"
	}
	path := filepath.Join(s.uploadDir, fmt.Sprintf("%d-%s", time.Now().UnixMilli(), name))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("%w: create upload file: %w", errSaveUpload, err)
	}
	if _, err := io.Copy(uploadWriter{f}, part); err != nil {
		f.Close()
		return path, err
	}
	if err := f.Close(); err != nil {
		return path, fmt.Errorf("%w: close upload file: %w", errSaveUpload, err)
	}
	return path, nil
}

// uploadWriter tags write errors. It hides (*os.File).ReadFrom
// so that io.Copy reports reads and writes separately.
type uploadWriter struct {
	f *os.File
}

func (w uploadWriter) Write(p []byte) (int, error) {
	n, err := w.f.Write(p)
	if err != nil {
		return n, fmt.Errorf("%w: write upload file: %w", errSaveUpload, err)
	}
	return n, nil
}
