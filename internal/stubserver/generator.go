package stubserver

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lessonforge/docgen-client/internal/models"
)

// parseWeekRange interprets "start-end" (inclusive, 1-based). An empty
// range covers all weeks.
func parseWeekRange(weekRange string, totalWeeks int) (int, int, error) {
	if weekRange == "" {
		return 1, totalWeeks, nil
	}

	parts := strings.SplitN(weekRange, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("week range %q must be start-end", weekRange)
	}
	start, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	end, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return 0, 0, fmt.Errorf("week range %q must be numeric", weekRange)
	}
	if start < 1 || end < start {
		return 0, 0, fmt.Errorf("week range %q is out of order", weekRange)
	}
	return start, end, nil
}

// runGeneration produces one placeholder document per week, honoring the
// pause and stop controls between steps, and broadcasts every transition
// on the progress channel.
func (s *Server) runGeneration(t *task, start, end int) {
	total := end - start + 1

	t.mu.Lock()
	t.status = models.TaskStatusRunning
	t.mu.Unlock()
	s.broadcast(t, "")

	done := 0
	for week := start; week <= end; week++ {
		if !s.waitWhilePaused(t) {
			s.broadcast(t, "")
			return
		}

		if s.opts.StepDelay > 0 {
			time.Sleep(s.opts.StepDelay)
		}

		filename := fmt.Sprintf("lesson_plan_week_%02d.docx", week)
		s.addResult(filename, week)

		done++
		t.mu.Lock()
		t.progress = done * 100 / total
		t.current = fmt.Sprintf("Week %d", week)
		t.resultFiles = append(t.resultFiles, filename)
		t.mu.Unlock()
		s.broadcast(t, fmt.Sprintf("Generated week %d of %d", week, end))
	}

	t.mu.Lock()
	t.status = models.TaskStatusCompleted
	t.progress = 100
	t.mu.Unlock()
	s.broadcast(t, "Generation complete")
}

// waitWhilePaused blocks while the task is paused. It returns false when
// the task was stopped.
func (s *Server) waitWhilePaused(t *task) bool {
	for {
		t.mu.Lock()
		status := t.status
		t.mu.Unlock()

		switch status {
		case models.TaskStatusStopped:
			return false
		case models.TaskStatusPaused:
			time.Sleep(50 * time.Millisecond)
		default:
			return true
		}
	}
}

func (s *Server) addResult(filename string, week int) {
	content := []byte(fmt.Sprintf("Lesson plan for week %d\n", week))

	s.mu.Lock()
	s.resultData[filename] = content
	s.results = append(s.results, models.GenerationResult{
		Filename: filename,
		Size:     int64(len(content)),
		Created:  float64(time.Now().UnixNano()) / 1e9,
	})
	s.mu.Unlock()
}

// broadcast pushes the task's current state to every websocket subscriber.
func (s *Server) broadcast(t *task, message string) {
	t.mu.Lock()
	ev := models.ProgressEvent{
		Type:     models.EventTypeProgress,
		TaskID:   t.id,
		Status:   t.status,
		Progress: t.progress,
		Message:  message,
		Current:  t.current,
		Error:    t.err,
	}
	t.mu.Unlock()

	s.hub.Broadcast(ev)
}
