// Package registry tracks the session's uploaded files, keyed by the
// server-issued file id. All mutation goes through guarded helpers; parse
// transitions carry a per-entry sequence number so a late response from a
// superseded parse request can never overwrite newer state.
package registry

import (
	"sort"
	"sync"

	"github.com/lessonforge/docgen-client/internal/models"
)

type entry struct {
	file     models.UploadedFile
	parseSeq uint64
}

// Registry is the in-memory file store for one client session.
type Registry struct {
	mu    sync.RWMutex
	files map[string]*entry
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{files: make(map[string]*entry)}
}

// Put creates or replaces the record for f.FileID.
func (r *Registry) Put(f models.UploadedFile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files[f.FileID] = &entry{file: f}
}

// Get returns a copy of the record for id.
func (r *Registry) Get(id string) (models.UploadedFile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.files[id]
	if !ok {
		return models.UploadedFile{}, false
	}
	return e.file, true
}

// Delete removes the record for id, reporting whether it existed.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.files[id]
	delete(r.files, id)
	return ok
}

// Len returns the number of tracked files.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.files)
}

// List returns copies of all records, most recently uploaded first.
func (r *Registry) List() []models.UploadedFile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]models.UploadedFile, 0, len(r.files))
	for _, e := range r.files {
		list = append(list, e.file)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].UploadedAt.After(list[j].UploadedAt)
	})
	return list
}

// ActiveByCategory returns the most recent upload for a category. The UI
// model only ever operates on one file per category even though older
// entries may still be tracked.
func (r *Registry) ActiveByCategory(c models.Category) (models.UploadedFile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *entry
	for _, e := range r.files {
		if e.file.Category != c {
			continue
		}
		if best == nil || e.file.UploadedAt.After(best.file.UploadedAt) {
			best = e
		}
	}
	if best == nil {
		return models.UploadedFile{}, false
	}
	return best.file, true
}

// GenerationReady reports whether generation may be started right now.
func (r *Registry) GenerationReady() bool {
	return Ready(r.List())
}

// Ready is the readiness predicate: true iff at least one schedule-category
// file has been parsed.
func Ready(files []models.UploadedFile) bool {
	for _, f := range files {
		if f.Category == models.CategorySchedule && f.Status == models.FileStatusParsed {
			return true
		}
	}
	return false
}

// BeginParse transitions the entry to parsing, clears any previous error,
// and returns the sequence number for this parse attempt. Returns false if
// the entry no longer exists.
func (r *Registry) BeginParse(id string) (uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.files[id]
	if !ok {
		return 0, false
	}
	e.parseSeq++
	e.file.Status = models.FileStatusParsing
	e.file.ErrorMessage = ""
	e.file.ErrorDetail = ""
	return e.parseSeq, true
}

// FinishParse applies the outcome of a parse attempt, but only when seq is
// still the latest attempt for the entry. Returns false when the entry is
// gone or a newer parse has been issued in the meantime; the caller's
// response is stale and must be dropped.
func (r *Registry) FinishParse(id string, seq uint64, apply func(*models.UploadedFile)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.files[id]
	if !ok || e.parseSeq != seq {
		return false
	}
	apply(&e.file)
	return true
}
