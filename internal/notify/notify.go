// Package notify carries state-change notifications from the orchestration
// core to whatever presentation layer is attached (CLI, tests, a future UI).
package notify

import "github.com/lessonforge/docgen-client/internal/models"

// Level classifies a user-facing log entry.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Sink receives notifications from the orchestration core. Implementations
// must be cheap and non-blocking; they are called from the components'
// goroutines.
type Sink interface {
	// Notify appends a human-readable log entry.
	Notify(level Level, message string)
	// FilesChanged fires after any file-registry mutation.
	FilesChanged()
	// ReadinessChanged reports whether generation may currently be started.
	ReadinessChanged(ready bool)
	// UploadReset asks the presentation to restore the upload affordance
	// for a category (after a failed upload or a deletion).
	UploadReset(category models.Category)
	// TaskProgress delivers the latest view of the active generation task.
	TaskProgress(task models.GenerationTask)
	// ResultsAvailable delivers the refreshed output listing after a task
	// completes.
	ResultsAvailable(results []models.GenerationResult)
}

// Base is a no-op Sink intended for embedding so implementations only
// override what they care about.
type Base struct{}

func (Base) Notify(Level, string)                       {}
func (Base) FilesChanged()                              {}
func (Base) ReadinessChanged(bool)                      {}
func (Base) UploadReset(models.Category)                {}
func (Base) TaskProgress(models.GenerationTask)         {}
func (Base) ResultsAvailable([]models.GenerationResult) {}

// Discard drops every notification.
var Discard Sink = Base{}
