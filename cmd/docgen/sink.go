package main

import (
	"fmt"
	"strings"

	"github.com/lessonforge/docgen-client/internal/models"
	"github.com/lessonforge/docgen-client/internal/notify"
)

// consoleSink renders notifications on stdout and signals task completion
// so commands can wait for a generation to finish.
type consoleSink struct {
	notify.Base
	done chan models.GenerationTask
}

func newConsoleSink() *consoleSink {
	return &consoleSink{done: make(chan models.GenerationTask, 1)}
}

func (s *consoleSink) Notify(level notify.Level, message string) {
	fmt.Printf("[%s] %s\n", strings.ToUpper(string(level)), message)
}

func (s *consoleSink) TaskProgress(task models.GenerationTask) {
	line := fmt.Sprintf("  %s %3d%%", task.Status, task.Progress)
	if task.Current != "" {
		line += "  " + task.Current
	}
	if task.Error != "" {
		line += "  error: " + task.Error
	}
	fmt.Println(line)

	if task.Status.Terminal() {
		select {
		case s.done <- task:
		default:
		}
	}
}

func (s *consoleSink) ResultsAvailable(results []models.GenerationResult) {
	fmt.Printf("  %d document(s) ready\n", len(results))
}
