// registry_test.go - Tests for the session file registry
package registry

import (
	"testing"
	"time"

	"github.com/lessonforge/docgen-client/internal/models"
)

func newFile(id string, cat models.Category, status models.FileStatus, uploadedAt time.Time) models.UploadedFile {
	return models.UploadedFile{
		FileID:     id,
		Category:   cat,
		Name:       id + ".xlsx",
		Status:     status,
		UploadedAt: uploadedAt,
	}
}

func TestRegistry_PutGetDelete(t *testing.T) {
	r := New()
	now := time.Now()

	r.Put(newFile("a", models.CategorySchedule, models.FileStatusUploaded, now))

	got, ok := r.Get("a")
	if !ok {
		t.Fatal("Get returned not found for an existing entry")
	}
	if got.FileID != "a" || got.Status != models.FileStatusUploaded {
		t.Errorf("Get = %+v", got)
	}

	// Mutating the copy must not touch the registry.
	got.Status = models.FileStatusError
	again, _ := r.Get("a")
	if again.Status != models.FileStatusUploaded {
		t.Error("Get returned a live reference instead of a copy")
	}

	if !r.Delete("a") {
		t.Error("Delete reported missing for an existing entry")
	}
	if r.Delete("a") {
		t.Error("Delete reported existing for a removed entry")
	}
	if r.Len() != 0 {
		t.Errorf("Len = %d, want 0", r.Len())
	}
}

func TestRegistry_ListOrder(t *testing.T) {
	r := New()
	base := time.Now()

	r.Put(newFile("old", models.CategorySchedule, models.FileStatusParsed, base.Add(-time.Hour)))
	r.Put(newFile("new", models.CategorySyllabus, models.FileStatusUploaded, base))
	r.Put(newFile("mid", models.CategoryTemplate, models.FileStatusUploaded, base.Add(-time.Minute)))

	list := r.List()
	if len(list) != 3 {
		t.Fatalf("List returned %d entries, want 3", len(list))
	}
	wantOrder := []string{"new", "mid", "old"}
	for i, id := range wantOrder {
		if list[i].FileID != id {
			t.Errorf("List[%d] = %s, want %s", i, list[i].FileID, id)
		}
	}
}

func TestRegistry_ActiveByCategory(t *testing.T) {
	r := New()
	base := time.Now()

	if _, ok := r.ActiveByCategory(models.CategorySchedule); ok {
		t.Error("ActiveByCategory found an entry in an empty registry")
	}

	r.Put(newFile("first", models.CategorySchedule, models.FileStatusParsed, base.Add(-time.Hour)))
	r.Put(newFile("second", models.CategorySchedule, models.FileStatusUploaded, base))
	r.Put(newFile("other", models.CategorySyllabus, models.FileStatusParsed, base))

	got, ok := r.ActiveByCategory(models.CategorySchedule)
	if !ok || got.FileID != "second" {
		t.Errorf("ActiveByCategory = %v %v, want the most recent schedule", got.FileID, ok)
	}
}

func TestReady(t *testing.T) {
	tests := []struct {
		name  string
		files []models.UploadedFile
		want  bool
	}{
		{
			name: "no files",
			want: false,
		},
		{
			name: "schedule uploaded but not parsed",
			files: []models.UploadedFile{
				newFile("s", models.CategorySchedule, models.FileStatusUploaded, time.Now()),
			},
			want: false,
		},
		{
			name: "parsed syllabus alone is not enough",
			files: []models.UploadedFile{
				newFile("y", models.CategorySyllabus, models.FileStatusParsed, time.Now()),
			},
			want: false,
		},
		{
			name: "parsed schedule",
			files: []models.UploadedFile{
				newFile("s", models.CategorySchedule, models.FileStatusParsed, time.Now()),
			},
			want: true,
		},
		{
			name: "parsed schedule alongside failed syllabus",
			files: []models.UploadedFile{
				newFile("s", models.CategorySchedule, models.FileStatusParsed, time.Now()),
				newFile("y", models.CategorySyllabus, models.FileStatusError, time.Now()),
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Ready(tt.files); got != tt.want {
				t.Errorf("Ready = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRegistry_ParseSequenceGuard(t *testing.T) {
	r := New()
	r.Put(newFile("a", models.CategorySchedule, models.FileStatusUploaded, time.Now()))

	seq1, ok := r.BeginParse("a")
	if !ok {
		t.Fatal("BeginParse failed for an existing entry")
	}

	f, _ := r.Get("a")
	if f.Status != models.FileStatusParsing {
		t.Errorf("Status after BeginParse = %s, want parsing", f.Status)
	}

	// A second attempt supersedes the first.
	seq2, _ := r.BeginParse("a")
	if seq2 <= seq1 {
		t.Fatalf("second sequence %d not greater than first %d", seq2, seq1)
	}

	// The stale attempt's result must be dropped.
	if r.FinishParse("a", seq1, func(uf *models.UploadedFile) {
		uf.Status = models.FileStatusError
	}) {
		t.Error("FinishParse applied a stale result")
	}
	f, _ = r.Get("a")
	if f.Status != models.FileStatusParsing {
		t.Errorf("stale FinishParse changed status to %s", f.Status)
	}

	// The current attempt's result applies.
	if !r.FinishParse("a", seq2, func(uf *models.UploadedFile) {
		uf.Status = models.FileStatusParsed
	}) {
		t.Error("FinishParse rejected the current result")
	}
	f, _ = r.Get("a")
	if f.Status != models.FileStatusParsed {
		t.Errorf("Status = %s, want parsed", f.Status)
	}
}

func TestRegistry_FinishParseAfterDelete(t *testing.T) {
	r := New()
	r.Put(newFile("a", models.CategorySchedule, models.FileStatusUploaded, time.Now()))

	seq, _ := r.BeginParse("a")
	r.Delete("a")

	if r.FinishParse("a", seq, func(uf *models.UploadedFile) {
		uf.Status = models.FileStatusParsed
	}) {
		t.Error("FinishParse applied to a deleted entry")
	}
	if r.Len() != 0 {
		t.Errorf("Len = %d, want 0", r.Len())
	}

	// Re-uploading under the same id starts a fresh sequence.
	r.Put(newFile("a", models.CategorySchedule, models.FileStatusUploaded, time.Now()))
	if r.FinishParse("a", seq, func(uf *models.UploadedFile) {
		uf.Status = models.FileStatusError
	}) {
		t.Error("FinishParse crossed a delete/re-upload boundary")
	}
}
