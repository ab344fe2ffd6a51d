// Package api exposes the ingestion registry and the export pipeline over
// HTTP for the browser client. All state is session-scoped and in-memory.
package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"

	"github.com/archeus/mt940-merger/internal/config"
	"github.com/archeus/mt940-merger/internal/export"
	"github.com/archeus/mt940-merger/internal/models"
	"github.com/archeus/mt940-merger/internal/mt940"
	"github.com/archeus/mt940-merger/internal/writer"
)

const version = "1.0.0"

// allowedExtensions is the advisory upload allow-list; actual validity is
// decided by the tokenizer.
var allowedExtensions = map[string]bool{
	".sta":   true,
	".mt940": true,
	".mt":    true,
	".txt":   true,
}

// errorResponse is the JSON envelope for failed requests.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// UploadResult reports the outcome for one file of an upload batch.
type UploadResult struct {
	Name         string `json:"name"`
	ID           string `json:"id,omitempty"`
	Error        string `json:"error,omitempty"`
	Statements   int    `json:"statements,omitempty"`
	Transactions int    `json:"transactions,omitempty"`
}

// FileSummary is one entry of the file listing.
type FileSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Statements   int    `json:"statements"`
	Transactions int    `json:"transactions"`
	Selected     bool   `json:"selected"`
}

// PreviewTransaction is one row of the per-file detail table,
// display-formatted and not deduplicated.
type PreviewTransaction struct {
	Date             string `json:"date"`
	Amount           string `json:"amount"`
	Currency         string `json:"currency"`
	TransactionType  string `json:"transactionType"`
	CounterpartyName string `json:"counterpartyName,omitempty"`
	Description      string `json:"description"`
	Balance          string `json:"balance"`
}

// PreviewStatement groups the detail rows of one statement.
type PreviewStatement struct {
	AccountID    string               `json:"accountId"`
	Transactions []PreviewTransaction `json:"transactions"`
}

// Server wires the session store and handlers into a fiber app.
type Server struct {
	cfg      *config.Config
	log      *logrus.Logger
	sessions *SessionStore
	app      *fiber.App
}

// New builds the HTTP server.
func New(cfg *config.Config, log *logrus.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		log:      log,
		sessions: NewSessionStore(cfg.SessionTTL, log),
	}
	s.app = fiber.New(fiber.Config{
		BodyLimit:             int(cfg.MaxUploadBytes),
		DisableStartupMessage: true,
	})
	s.registerRoutes()
	return s
}

// App returns the underlying fiber app, used by tests via app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves until the listener fails.
func (s *Server) Listen() error {
	s.log.WithField("addr", s.cfg.ListenAddr).Info("listening")
	return s.app.Listen(s.cfg.ListenAddr)
}

func (s *Server) registerRoutes() {
	api := s.app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Post("/files", s.handleUpload)
	api.Get("/files", s.handleListFiles)
	api.Delete("/files/:id", s.handleRemoveFile)
	api.Post("/files/:id/select", s.handleSelectFile)
	api.Delete("/selection", s.handleClearSelection)
	api.Get("/preview", s.handlePreview)
	api.Get("/export/rows", s.handleExportRows)
	api.Post("/export/preview-visible", s.handleExportPreviewVisible)
	api.Get("/export", s.handleExport)
	api.Post("/reset", s.handleReset)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "version": version})
}

// handleUpload registers each file of a multipart batch independently:
// one file's failure never blocks or rolls back its siblings.
func (s *Server) handleUpload(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, fmt.Sprintf("failed to parse form: %v", err))
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		return writeError(c, fiber.StatusBadRequest, "no files uploaded; use form field 'files'")
	}

	reg := s.sessions.Registry(c)
	results := make([]UploadResult, 0, len(headers))
	failures := 0
	for _, h := range headers {
		result := UploadResult{Name: h.Filename}
		data, err := readUpload(h)
		switch {
		case err != nil:
			result.Error = fmt.Sprintf("could not read file: %v", err)
		case !allowedExtensions[strings.ToLower(filepath.Ext(h.Filename))]:
			result.Error = "unsupported file extension"
		default:
			id, err := reg.AddFile(h.Filename, data)
			if err != nil {
				if errors.Is(err, mt940.ErrNotMT940) {
					result.Error = "invalid file format"
				} else {
					result.Error = err.Error()
				}
			} else {
				result.ID = id
				if f, ok := findFile(reg.Files(), id); ok {
					result.Statements = len(f.Record.Statements)
					result.Transactions = f.Record.TransactionCount()
				}
			}
		}
		if result.Error != "" {
			failures++
		}
		results = append(results, result)
	}

	status := fiber.StatusOK
	if failures == len(results) {
		status = fiber.StatusUnprocessableEntity
	}
	return c.Status(status).JSON(fiber.Map{
		"success": failures < len(results),
		"results": results,
	})
}

func (s *Server) handleListFiles(c *fiber.Ctx) error {
	reg := s.sessions.Registry(c)
	selected, hasSelection := reg.SelectedFile()

	files := reg.Files()
	out := make([]FileSummary, 0, len(files))
	for _, f := range files {
		out = append(out, FileSummary{
			ID:           f.ID,
			Name:         f.Name,
			Statements:   len(f.Record.Statements),
			Transactions: f.Record.TransactionCount(),
			Selected:     hasSelection && f.ID == selected.ID,
		})
	}
	return c.JSON(fiber.Map{"success": true, "files": out})
}

func (s *Server) handleRemoveFile(c *fiber.Ctx) error {
	s.sessions.Registry(c).RemoveFile(c.Params("id"))
	return c.JSON(fiber.Map{"success": true})
}

func (s *Server) handleSelectFile(c *fiber.Ctx) error {
	// c.Params returns a string backed by fiber's reusable request buffer;
	// copy it before storing it past the handler's lifetime.
	s.sessions.Registry(c).SelectFile(utils.CopyString(c.Params("id")))
	return c.JSON(fiber.Map{"success": true})
}

func (s *Server) handleClearSelection(c *fiber.Ctx) error {
	s.sessions.Registry(c).SelectFile("")
	return c.JSON(fiber.Map{"success": true})
}

// handlePreview renders the selected file's raw per-statement transaction
// table, without deduplication.
func (s *Server) handlePreview(c *fiber.Ctx) error {
	reg := s.sessions.Registry(c)
	file, ok := reg.SelectedFile()
	if !ok {
		return writeError(c, fiber.StatusNotFound, "no file selected")
	}

	statements := make([]PreviewStatement, 0, len(file.Record.Statements))
	for _, st := range file.Record.Statements {
		ps := PreviewStatement{AccountID: st.AccountID}
		for _, t := range st.Transactions {
			pt := PreviewTransaction{
				Date:            models.FormatDisplayDate(t.EntryDate),
				Amount:          t.Amount,
				Currency:        t.Currency,
				TransactionType: t.TransactionType,
				Description:     t.Description,
				Balance:         t.Balance,
			}
			if t.Counterparty != nil {
				pt.CounterpartyName = t.Counterparty.Name
			}
			ps.Transactions = append(ps.Transactions, pt)
		}
		statements = append(statements, ps)
	}
	return c.JSON(fiber.Map{
		"success":    true,
		"id":         file.ID,
		"name":       file.Name,
		"statements": statements,
	})
}

func (s *Server) handleExportRows(c *fiber.Ctx) error {
	reg := s.sessions.Registry(c)
	files := reg.Files()
	rows := export.Rows(files)
	minDate, maxDate, _ := export.DateRange(rows)
	firstAccount, _ := export.FirstAccountID(files)
	debit, credit := export.Totals(rows)

	if rows == nil {
		rows = []export.Row{}
	}
	return c.JSON(fiber.Map{
		"success":        true,
		"rows":           rows,
		"count":          len(rows),
		"minDate":        minDate,
		"maxDate":        maxDate,
		"firstAccountId": firstAccount,
		"totalDebit":     debit.String(),
		"totalCredit":    credit.String(),
		"fileName":       export.FileName(files, rows),
		"previewVisible": reg.ExportPreviewVisible(),
	})
}

func (s *Server) handleExportPreviewVisible(c *fiber.Ctx) error {
	var body struct {
		Visible bool `json:"visible"`
	}
	if err := c.BodyParser(&body); err != nil {
		return writeError(c, fiber.StatusBadRequest, "expected JSON body with 'visible'")
	}
	s.sessions.Registry(c).SetExportPreviewVisible(body.Visible)
	return c.JSON(fiber.Map{"success": true})
}

// handleExport serializes the deduplicated rows as a CSV download. An
// export with zero registered files is refused here, at the call site,
// rather than producing a zero-row file.
func (s *Server) handleExport(c *fiber.Ctx) error {
	reg := s.sessions.Registry(c)
	if reg.Len() == 0 {
		return writeError(c, fiber.StatusConflict, "nothing to export; upload a statement file first")
	}

	files := reg.Files()
	rows := export.Rows(files)

	var buf bytes.Buffer
	w := &writer.CSVWriter{}
	if err := w.Write(&buf, rows); err != nil {
		return writeError(c, fiber.StatusInternalServerError, fmt.Sprintf("CSV generation failed: %v", err))
	}

	name := export.FileName(files, rows)
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	s.log.WithFields(logrus.Fields{"rows": len(rows), "file": name}).Info("export")
	return c.Send(buf.Bytes())
}

func (s *Server) handleReset(c *fiber.Ctx) error {
	s.sessions.Registry(c).Reset()
	return c.JSON(fiber.Map{"success": true})
}

func writeError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(errorResponse{Success: false, Error: msg})
}

func readUpload(h *multipart.FileHeader) ([]byte, error) {
	f, err := h.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func findFile(files []models.UploadedFile, id string) (models.UploadedFile, bool) {
	for _, f := range files {
		if f.ID == id {
			return f, true
		}
	}
	return models.UploadedFile{}, false
}
