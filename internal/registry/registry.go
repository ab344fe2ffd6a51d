// Package registry owns the session working set of uploaded statement
// files: the file list, the preview selection, and the export-preview
// visibility flag. A Registry is constructed per session and injected
// into whatever needs it; there is no package-level instance.
package registry

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/archeus/mt940-merger/internal/models"
	"github.com/archeus/mt940-merger/internal/mt940"
)

// Registry is safe for concurrent use. Every mutation is a single atomic
// transition: a reader never observes a selection pointing at a removed
// file or a partially applied reset.
type Registry struct {
	mu                   sync.Mutex
	files                []models.UploadedFile
	selectedID           string
	exportPreviewVisible bool
	log                  *logrus.Logger
}

// New returns an empty registry logging through log. A nil log disables
// ingest logging.
func New(log *logrus.Logger) *Registry {
	if log == nil {
		log = logrus.New()
		log.SetLevel(logrus.PanicLevel)
	}
	return &Registry{log: log}
}

// AddFile tokenizes data and registers the parsed file, returning its id.
// On parse failure the registry is left unmodified and the error is local
// to this file; sibling uploads in the same batch are unaffected.
func (r *Registry) AddFile(name string, data []byte) (string, error) {
	record, err := mt940.Parse(data)
	if err != nil {
		r.log.WithError(err).WithField("file", name).Warn("rejected upload")
		return "", fmt.Errorf("parsing %s: %w", name, err)
	}

	id := uuid.NewString()
	r.mu.Lock()
	r.files = append(r.files, models.UploadedFile{ID: id, Name: name, Record: record})
	r.mu.Unlock()

	r.log.WithFields(logrus.Fields{
		"file":         name,
		"id":           id,
		"statements":   len(record.Statements),
		"transactions": record.TransactionCount(),
	}).Info("registered upload")
	return id, nil
}

// RemoveFile removes the file with the given id, clearing the selection in
// the same transition if it pointed at the removed file. Unknown ids are a
// no-op.
func (r *Registry) RemoveFile(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, f := range r.files {
		if f.ID == id {
			r.files = append(r.files[:i], r.files[i+1:]...)
			if r.selectedID == id {
				r.selectedID = ""
			}
			return
		}
	}
}

// SelectFile sets the preview target; an empty id clears it. The id is not
// validated here, lookups simply return not-found downstream.
func (r *Registry) SelectFile(id string) {
	r.mu.Lock()
	r.selectedID = id
	r.mu.Unlock()
}

// SelectedFile returns the currently selected file, if any.
func (r *Registry) SelectedFile() (models.UploadedFile, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.selectedID == "" {
		return models.UploadedFile{}, false
	}
	for _, f := range r.files {
		if f.ID == r.selectedID {
			return f, true
		}
	}
	return models.UploadedFile{}, false
}

// SetExportPreviewVisible toggles the export-preview flag. Pure UI state,
// independent of the file list.
func (r *Registry) SetExportPreviewVisible(visible bool) {
	r.mu.Lock()
	r.exportPreviewVisible = visible
	r.mu.Unlock()
}

// ExportPreviewVisible reports the export-preview flag.
func (r *Registry) ExportPreviewVisible() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.exportPreviewVisible
}

// Files returns a snapshot of the registered files in insertion order.
func (r *Registry) Files() []models.UploadedFile {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.UploadedFile, len(r.files))
	copy(out, r.files)
	return out
}

// Len returns the number of registered files.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.files)
}

// Reset clears all files, the selection, and the preview flag atomically.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.files = nil
	r.selectedID = ""
	r.exportPreviewVisible = false
	r.mu.Unlock()
}
