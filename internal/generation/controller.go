// Package generation manages the single active generation task: starting
// it, applying progress events from the push channel or the polling
// fallback, and the pause/resume/stop controls.
package generation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lessonforge/docgen-client/internal/models"
	"github.com/lessonforge/docgen-client/internal/notify"
	"github.com/lessonforge/docgen-client/internal/registry"
	"github.com/lessonforge/docgen-client/internal/rest"
)

var (
	// ErrTaskActive rejects a start while a previous task is still running.
	ErrTaskActive = errors.New("a generation task is already active")
	// ErrScheduleNotParsed rejects a start without a parsed schedule.
	ErrScheduleNotParsed = errors.New("no parsed schedule file")
	// ErrNoTask rejects a control action when no task is tracked.
	ErrNoTask = errors.New("no generation task")
)

// API is the server surface the controller needs.
type API interface {
	Generate(ctx context.Context, req rest.GenerateRequest) (string, error)
	TaskStatus(ctx context.Context, taskID string) (*rest.TaskRecord, error)
	PauseTask(ctx context.Context, taskID string) (*rest.TaskAction, error)
	ResumeTask(ctx context.Context, taskID string) (*rest.TaskAction, error)
	StopTask(ctx context.Context, taskID string) (*rest.TaskAction, error)
	Results(ctx context.Context) ([]models.GenerationResult, error)
}

// Controller tracks at most one generation task per session.
type Controller struct {
	mu   sync.Mutex
	api  API
	reg  *registry.Registry
	sink notify.Sink
	task *models.GenerationTask
}

// New wires a controller.
func New(api API, reg *registry.Registry, sink notify.Sink) *Controller {
	if sink == nil {
		sink = notify.Discard
	}
	return &Controller{api: api, reg: reg, sink: sink}
}

// Start begins a generation task. If an earlier task id is still tracked
// its server-side status is checked first so a task that finished while
// the channel was down does not block the slot forever. The schedule must
// be parsed before any request is made.
func (c *Controller) Start(ctx context.Context, scheduleID, syllabusID, templateID, weekRange string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.task != nil {
		rec, err := c.api.TaskStatus(ctx, c.task.TaskID)
		switch {
		case err == nil && rec.Status.Active():
			return "", ErrTaskActive
		case err == nil:
			// finished behind our back; the slot is free
			c.task = nil
		case rest.IsNotFound(err):
			c.task = nil
		default:
			return "", err
		}
	}

	f, ok := c.reg.Get(scheduleID)
	if !ok || !f.Parsed() {
		return "", ErrScheduleNotParsed
	}

	taskID, err := c.api.Generate(ctx, rest.GenerateRequest{
		ScheduleFileID: scheduleID,
		SyllabusFileID: syllabusID,
		TemplateFileID: templateID,
		WeekRange:      weekRange,
	})
	if err != nil {
		c.sink.Notify(notify.LevelError, fmt.Sprintf("Generation failed to start: %v", err))
		return "", err
	}

	c.task = &models.GenerationTask{TaskID: taskID, Status: models.TaskStatusPending}
	fmt.Printf("[Generation] task %s started\n", taskID)
	c.sink.Notify(notify.LevelInfo, "Generation started")
	c.sink.TaskProgress(*c.task)
	return taskID, nil
}

// Apply folds one progress event into the tracked task. Events for a
// different task id are dropped. Progress never regresses while the task
// is running; terminal events pin their final value regardless.
func (c *Controller) Apply(ctx context.Context, ev models.ProgressEvent) {
	c.mu.Lock()

	if c.task == nil || ev.TaskID != c.task.TaskID {
		c.mu.Unlock()
		return
	}

	t := c.task
	switch {
	case ev.Status.Terminal():
		t.Status = ev.Status
		t.Progress = ev.Progress
		if ev.Status == models.TaskStatusCompleted {
			t.Progress = 100
		}
		t.Current = ev.Current
		t.Message = ev.Message
		t.Error = ev.Error
	case ev.Status.Known():
		t.Status = ev.Status
		if ev.Progress > t.Progress {
			t.Progress = ev.Progress
		}
		t.Current = ev.Current
		t.Message = ev.Message
		t.Error = ev.Error
	default:
		// Unrecognized statuses are dropped whole, not partially applied.
		fmt.Printf("[Generation] ignoring unknown status %q for task %s\n", ev.Status, ev.TaskID)
		c.mu.Unlock()
		return
	}

	snapshot := *t
	if snapshot.Status.Terminal() {
		c.task = nil
	}
	c.mu.Unlock()

	c.sink.TaskProgress(snapshot)

	switch snapshot.Status {
	case models.TaskStatusCompleted:
		c.sink.Notify(notify.LevelSuccess, "Generation completed")
		c.publishResults(ctx)
	case models.TaskStatusFailed:
		c.sink.Notify(notify.LevelError, fmt.Sprintf("Generation failed: %s", snapshot.Error))
	case models.TaskStatusStopped:
		c.sink.Notify(notify.LevelWarning, "Generation stopped")
	}
}

// publishResults fetches the output listing once after completion.
func (c *Controller) publishResults(ctx context.Context) {
	results, err := c.api.Results(ctx)
	if err != nil {
		fmt.Printf("[Generation] fetching results failed: %v\n", err)
		c.sink.Notify(notify.LevelWarning, fmt.Sprintf("Could not fetch results: %v", err))
		return
	}
	c.sink.ResultsAvailable(results)
}

// PollOnce queries the tracked task's status and applies it as if it had
// arrived on the push channel.
func (c *Controller) PollOnce(ctx context.Context) error {
	id := c.CurrentTaskID()
	if id == "" {
		return ErrNoTask
	}

	rec, err := c.api.TaskStatus(ctx, id)
	if err != nil {
		return err
	}
	c.Apply(ctx, rec.Event(id))
	return nil
}

// Poll runs the status-polling fallback until ctx is cancelled or the
// tracked task reaches a terminal state.
func (c *Controller) Poll(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.PollOnce(ctx); err != nil {
				if errors.Is(err, ErrNoTask) {
					return
				}
				fmt.Printf("[Generation] status poll failed: %v\n", err)
			}
		}
	}
}

// Run consumes push-channel events until the stream closes or ctx is
// cancelled.
func (c *Controller) Run(ctx context.Context, events <-chan models.ProgressEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.Apply(ctx, ev)
		}
	}
}

// Pause asks the server to pause the tracked task.
func (c *Controller) Pause(ctx context.Context) error {
	return c.control(ctx, "pause", c.api.PauseTask)
}

// Resume asks the server to resume the tracked task.
func (c *Controller) Resume(ctx context.Context) error {
	return c.control(ctx, "resume", c.api.ResumeTask)
}

// Stop asks the server to terminate the tracked task.
func (c *Controller) Stop(ctx context.Context) error {
	return c.control(ctx, "stop", c.api.StopTask)
}

func (c *Controller) control(ctx context.Context, verb string, call func(context.Context, string) (*rest.TaskAction, error)) error {
	id := c.CurrentTaskID()
	if id == "" {
		return ErrNoTask
	}

	act, err := call(ctx, id)
	if err != nil {
		c.sink.Notify(notify.LevelError, fmt.Sprintf("Could not %s generation: %v", verb, err))
		return err
	}

	c.mu.Lock()
	if c.task != nil && c.task.TaskID == id && act.Status.Known() {
		c.task.Status = act.Status
		snapshot := *c.task
		if snapshot.Status.Terminal() {
			c.task = nil
		}
		c.mu.Unlock()
		c.sink.TaskProgress(snapshot)
	} else {
		c.mu.Unlock()
	}
	return nil
}

// Snapshot returns a copy of the tracked task, if any.
func (c *Controller) Snapshot() (models.GenerationTask, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.task == nil {
		return models.GenerationTask{}, false
	}
	return *c.task, true
}

// CurrentTaskID returns the tracked task id, or "".
func (c *Controller) CurrentTaskID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.task == nil {
		return ""
	}
	return c.task.TaskID
}
