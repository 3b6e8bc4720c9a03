// recorder_sink.go - Recording notify.Sink implementation for testing
package testutil

import (
	"fmt"
	"sync"

	"github.com/lessonforge/docgen-client/internal/models"
	"github.com/lessonforge/docgen-client/internal/notify"
)

// RecorderSink implements notify.Sink and records every callback so tests
// can assert on what the orchestration core announced.
type RecorderSink struct {
	mu sync.Mutex

	logs         []string
	filesChanged int
	readiness    []bool
	resets       []models.Category
	tasks        []models.GenerationTask
	results      [][]models.GenerationResult
}

// NewRecorderSink creates an empty recorder.
func NewRecorderSink() *RecorderSink {
	return &RecorderSink{}
}

func (s *RecorderSink) Notify(level notify.Level, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, fmt.Sprintf("%s: %s", level, message))
}

func (s *RecorderSink) FilesChanged() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filesChanged++
}

func (s *RecorderSink) ReadinessChanged(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readiness = append(s.readiness, ready)
}

func (s *RecorderSink) UploadReset(category models.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets = append(s.resets, category)
}

func (s *RecorderSink) TaskProgress(task models.GenerationTask) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, task)
}

func (s *RecorderSink) ResultsAvailable(results []models.GenerationResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, results)
}

// Logs returns a copy of the recorded log lines.
func (s *RecorderSink) Logs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.logs))
	copy(out, s.logs)
	return out
}

// FilesChangedCount returns how many times FilesChanged fired.
func (s *RecorderSink) FilesChangedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filesChanged
}

// Readiness returns the sequence of readiness values observed.
func (s *RecorderSink) Readiness() []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]bool, len(s.readiness))
	copy(out, s.readiness)
	return out
}

// LastReadiness returns the most recent readiness value, or false.
func (s *RecorderSink) LastReadiness() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.readiness) == 0 {
		return false
	}
	return s.readiness[len(s.readiness)-1]
}

// Resets returns the categories whose upload affordance was reset.
func (s *RecorderSink) Resets() []models.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Category, len(s.resets))
	copy(out, s.resets)
	return out
}

// Tasks returns every task snapshot delivered so far.
func (s *RecorderSink) Tasks() []models.GenerationTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.GenerationTask, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Results returns every results payload delivered so far.
func (s *RecorderSink) Results() [][]models.GenerationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]models.GenerationResult, len(s.results))
	copy(out, s.results)
	return out
}
