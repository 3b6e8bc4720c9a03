// controller_test.go - Tests for the generation task lifecycle
package generation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lessonforge/docgen-client/internal/models"
	"github.com/lessonforge/docgen-client/internal/registry"
	"github.com/lessonforge/docgen-client/internal/rest"
	"github.com/lessonforge/docgen-client/internal/testutil"
)

// fakeAPI is a scripted generation.API double.
type fakeAPI struct {
	mu sync.Mutex

	generateID  string
	generateErr error

	statusResp *rest.TaskRecord
	statusErr  error

	actionResp *rest.TaskAction
	actionErr  error

	results    []models.GenerationResult
	resultsErr error

	generateCalls int
	statusCalls   int
	resultsCalls  int
}

func (f *fakeAPI) Generate(context.Context, rest.GenerateRequest) (string, error) {
	f.mu.Lock()
	f.generateCalls++
	f.mu.Unlock()
	return f.generateID, f.generateErr
}

func (f *fakeAPI) TaskStatus(context.Context, string) (*rest.TaskRecord, error) {
	f.mu.Lock()
	f.statusCalls++
	f.mu.Unlock()
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return f.statusResp, nil
}

func (f *fakeAPI) PauseTask(context.Context, string) (*rest.TaskAction, error) {
	return f.actionResp, f.actionErr
}

func (f *fakeAPI) ResumeTask(context.Context, string) (*rest.TaskAction, error) {
	return f.actionResp, f.actionErr
}

func (f *fakeAPI) StopTask(context.Context, string) (*rest.TaskAction, error) {
	return f.actionResp, f.actionErr
}

func (f *fakeAPI) Results(context.Context) ([]models.GenerationResult, error) {
	f.mu.Lock()
	f.resultsCalls++
	f.mu.Unlock()
	return f.results, f.resultsErr
}

func parsedScheduleRegistry() *registry.Registry {
	r := registry.New()
	r.Put(models.UploadedFile{
		FileID:   "sched-1",
		Category: models.CategorySchedule,
		Name:     "plan.xlsx",
		Status:   models.FileStatusParsed,
	})
	return r
}

func event(taskID string, status models.TaskStatus, progress int) models.ProgressEvent {
	return models.ProgressEvent{
		Type:     models.EventTypeProgress,
		TaskID:   taskID,
		Status:   status,
		Progress: progress,
	}
}

func TestStart(t *testing.T) {
	api := &fakeAPI{generateID: "t-1"}
	c := New(api, parsedScheduleRegistry(), testutil.NewRecorderSink())

	id, err := c.Start(context.Background(), "sched-1", "", "", "1-4")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if id != "t-1" {
		t.Errorf("task id = %q", id)
	}

	task, ok := c.Snapshot()
	if !ok || task.Status != models.TaskStatusPending {
		t.Errorf("Snapshot = %+v %v, want a pending task", task, ok)
	}
}

func TestStart_RequiresParsedSchedule(t *testing.T) {
	api := &fakeAPI{generateID: "t-1"}
	reg := registry.New()
	reg.Put(models.UploadedFile{
		FileID:   "sched-1",
		Category: models.CategorySchedule,
		Status:   models.FileStatusUploaded,
	})
	c := New(api, reg, testutil.NewRecorderSink())

	if _, err := c.Start(context.Background(), "sched-1", "", "", ""); !errors.Is(err, ErrScheduleNotParsed) {
		t.Errorf("Start() = %v, want ErrScheduleNotParsed", err)
	}
	if api.generateCalls != 0 {
		t.Error("precondition failure must not reach the server")
	}
}

func TestStart_RejectsWhileTaskActive(t *testing.T) {
	api := &fakeAPI{
		generateID: "t-1",
		statusResp: &rest.TaskRecord{Status: models.TaskStatusRunning, Progress: 50},
	}
	c := New(api, parsedScheduleRegistry(), testutil.NewRecorderSink())

	if _, err := c.Start(context.Background(), "sched-1", "", "", ""); err != nil {
		t.Fatalf("first Start() error = %v", err)
	}
	if _, err := c.Start(context.Background(), "sched-1", "", "", ""); !errors.Is(err, ErrTaskActive) {
		t.Errorf("second Start() = %v, want ErrTaskActive", err)
	}
}

func TestStart_RecoversSlotWhenServerSaysFinished(t *testing.T) {
	api := &fakeAPI{
		generateID: "t-1",
		statusResp: &rest.TaskRecord{Status: models.TaskStatusCompleted, Progress: 100},
	}
	c := New(api, parsedScheduleRegistry(), testutil.NewRecorderSink())

	if _, err := c.Start(context.Background(), "sched-1", "", "", ""); err != nil {
		t.Fatalf("first Start() error = %v", err)
	}

	// The tracked task completed while the push channel was down; the
	// server check frees the slot instead of rejecting forever.
	api.generateID = "t-2"
	id, err := c.Start(context.Background(), "sched-1", "", "", "")
	if err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	if id != "t-2" {
		t.Errorf("task id = %q, want t-2", id)
	}
}

func TestStart_RecoversSlotWhenTaskUnknown(t *testing.T) {
	api := &fakeAPI{
		generateID: "t-1",
		statusErr:  &rest.ServerError{StatusCode: 404, Detail: "task not found"},
	}
	c := New(api, parsedScheduleRegistry(), testutil.NewRecorderSink())

	if _, err := c.Start(context.Background(), "sched-1", "", "", ""); err != nil {
		t.Fatalf("first Start() error = %v", err)
	}
	if _, err := c.Start(context.Background(), "sched-1", "", "", ""); err != nil {
		t.Errorf("Start() after a vanished task = %v, want success", err)
	}
}

func TestApply_DropsForeignTaskEvents(t *testing.T) {
	api := &fakeAPI{generateID: "t-1"}
	sink := testutil.NewRecorderSink()
	c := New(api, parsedScheduleRegistry(), sink)
	c.Start(context.Background(), "sched-1", "", "", "")
	before := len(sink.Tasks())

	c.Apply(context.Background(), event("someone-else", models.TaskStatusRunning, 90))

	if got, _ := c.Snapshot(); got.Progress != 0 {
		t.Errorf("foreign event changed progress to %d", got.Progress)
	}
	if len(sink.Tasks()) != before {
		t.Error("foreign event produced a task notification")
	}
}

func TestApply_ProgressNeverRegressesWhileRunning(t *testing.T) {
	api := &fakeAPI{generateID: "t-1"}
	c := New(api, parsedScheduleRegistry(), testutil.NewRecorderSink())
	c.Start(context.Background(), "sched-1", "", "", "")

	ctx := context.Background()
	c.Apply(ctx, event("t-1", models.TaskStatusRunning, 60))
	c.Apply(ctx, event("t-1", models.TaskStatusRunning, 40)) // late arrival

	task, _ := c.Snapshot()
	if task.Progress != 60 {
		t.Errorf("Progress = %d, want 60 after a stale lower value", task.Progress)
	}
}

func TestApply_CompletionPinsProgressAndFetchesResults(t *testing.T) {
	api := &fakeAPI{
		generateID: "t-1",
		results:    []models.GenerationResult{{Filename: "week_01.docx", Size: 10}},
	}
	sink := testutil.NewRecorderSink()
	c := New(api, parsedScheduleRegistry(), sink)
	c.Start(context.Background(), "sched-1", "", "", "")

	c.Apply(context.Background(), event("t-1", models.TaskStatusCompleted, 80))

	tasks := sink.Tasks()
	last := tasks[len(tasks)-1]
	if last.Status != models.TaskStatusCompleted || last.Progress != 100 {
		t.Errorf("final snapshot = %+v, want completed at 100", last)
	}
	if _, ok := c.Snapshot(); ok {
		t.Error("completed task still occupies the slot")
	}
	if api.resultsCalls != 1 {
		t.Errorf("results fetched %d times, want once", api.resultsCalls)
	}
	if got := sink.Results(); len(got) != 1 || got[0][0].Filename != "week_01.docx" {
		t.Errorf("ResultsAvailable = %v", got)
	}
}

func TestApply_FailureSurfacesErrorAndFreesSlot(t *testing.T) {
	api := &fakeAPI{generateID: "t-1"}
	sink := testutil.NewRecorderSink()
	c := New(api, parsedScheduleRegistry(), sink)
	c.Start(context.Background(), "sched-1", "", "", "")

	ev := event("t-1", models.TaskStatusFailed, 30)
	ev.Error = "template missing"
	c.Apply(context.Background(), ev)

	tasks := sink.Tasks()
	last := tasks[len(tasks)-1]
	if last.Status != models.TaskStatusFailed || last.Error != "template missing" {
		t.Errorf("final snapshot = %+v", last)
	}
	if _, ok := c.Snapshot(); ok {
		t.Error("failed task still occupies the slot")
	}
	if api.resultsCalls != 0 {
		t.Error("failure must not trigger a results fetch")
	}
}

func TestApply_UnknownStatusKeepsState(t *testing.T) {
	api := &fakeAPI{generateID: "t-1"}
	sink := testutil.NewRecorderSink()
	c := New(api, parsedScheduleRegistry(), sink)
	c.Start(context.Background(), "sched-1", "", "", "")

	ctx := context.Background()
	known := event("t-1", models.TaskStatusRunning, 50)
	known.Current = "Week 5"
	known.Message = "halfway"
	c.Apply(ctx, known)
	notified := len(sink.Tasks())

	unknown := event("t-1", models.TaskStatus("exploded"), 70)
	unknown.Current = "Week ???"
	unknown.Error = "who knows"
	c.Apply(ctx, unknown)

	task, _ := c.Snapshot()
	if task.Status != models.TaskStatusRunning {
		t.Errorf("Status = %s, unknown status must not replace a known one", task.Status)
	}
	// The event is dropped whole: no field leaks through and nothing is
	// announced.
	if task.Current != "Week 5" || task.Message != "halfway" || task.Error != "" {
		t.Errorf("unknown event partially applied: %+v", task)
	}
	if len(sink.Tasks()) != notified {
		t.Error("dropped event still produced a task notification")
	}
}

func TestPollOnce(t *testing.T) {
	api := &fakeAPI{
		generateID: "t-1",
		statusResp: &rest.TaskRecord{Status: models.TaskStatusRunning, Progress: 45, Current: "Week 5"},
	}
	c := New(api, parsedScheduleRegistry(), testutil.NewRecorderSink())

	if err := c.PollOnce(context.Background()); !errors.Is(err, ErrNoTask) {
		t.Errorf("PollOnce without a task = %v, want ErrNoTask", err)
	}

	c.Start(context.Background(), "sched-1", "", "", "")
	if err := c.PollOnce(context.Background()); err != nil {
		t.Fatalf("PollOnce() error = %v", err)
	}

	task, _ := c.Snapshot()
	if task.Status != models.TaskStatusRunning || task.Progress != 45 || task.Current != "Week 5" {
		t.Errorf("polled snapshot = %+v", task)
	}
}

func TestRun_ConsumesEventStream(t *testing.T) {
	api := &fakeAPI{generateID: "t-1"}
	sink := testutil.NewRecorderSink()
	c := New(api, parsedScheduleRegistry(), sink)
	c.Start(context.Background(), "sched-1", "", "", "")

	events := make(chan models.ProgressEvent, 4)
	events <- event("t-1", models.TaskStatusRunning, 25)
	events <- event("t-1", models.TaskStatusRunning, 75)
	events <- event("t-1", models.TaskStatusCompleted, 100)
	close(events)

	done := make(chan struct{})
	go func() {
		c.Run(context.Background(), events)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the stream closed")
	}
	if _, ok := c.Snapshot(); ok {
		t.Error("task slot not freed after the terminal event")
	}
}

func TestControls(t *testing.T) {
	api := &fakeAPI{
		generateID: "t-1",
		actionResp: &rest.TaskAction{Status: models.TaskStatusPaused, TaskID: "t-1"},
	}
	c := New(api, parsedScheduleRegistry(), testutil.NewRecorderSink())

	if err := c.Pause(context.Background()); !errors.Is(err, ErrNoTask) {
		t.Errorf("Pause without a task = %v, want ErrNoTask", err)
	}

	c.Start(context.Background(), "sched-1", "", "", "")
	if err := c.Pause(context.Background()); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	task, _ := c.Snapshot()
	if task.Status != models.TaskStatusPaused {
		t.Errorf("Status = %s, want paused", task.Status)
	}

	api.actionResp = &rest.TaskAction{Status: models.TaskStatusStopped, TaskID: "t-1"}
	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if _, ok := c.Snapshot(); ok {
		t.Error("stopped task still occupies the slot")
	}
}
