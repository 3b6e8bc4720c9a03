// Package client assembles the document-generation client: REST access,
// the file registry, the upload coordinator, the generation controller and
// the push channel, behind one Session facade.
package client

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/lessonforge/docgen-client/internal/config"
	"github.com/lessonforge/docgen-client/internal/generation"
	"github.com/lessonforge/docgen-client/internal/models"
	"github.com/lessonforge/docgen-client/internal/notify"
	"github.com/lessonforge/docgen-client/internal/progress"
	"github.com/lessonforge/docgen-client/internal/registry"
	"github.com/lessonforge/docgen-client/internal/rest"
	"github.com/lessonforge/docgen-client/internal/uploader"
)

// Session is one connected client instance. All state is scoped to the
// session; two sessions against the same server do not share anything.
type Session struct {
	cfg  *config.Config
	api  *rest.Client
	reg  *registry.Registry
	sink notify.Sink

	Uploads    *uploader.Coordinator
	Generation *generation.Controller

	channel *progress.Channel
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSession wires a session from configuration. sink may be nil.
func NewSession(cfg *config.Config, sink notify.Sink) (*Session, error) {
	if sink == nil {
		sink = notify.Discard
	}

	wsURL, err := cfg.WebSocketURL()
	if err != nil {
		return nil, err
	}

	api := rest.NewClient(cfg.ServerURL, cfg.RequestTimeout())
	reg := registry.New()

	return &Session{
		cfg:        cfg,
		api:        api,
		reg:        reg,
		sink:       sink,
		Uploads:    uploader.New(api, reg, sink, cfg.ParseDelay()),
		Generation: generation.New(api, reg, sink),
		channel:    progress.NewChannel(wsURL, cfg.ReconnectDelay(), sink),
	}, nil
}

// Start seeds the registry from the server and launches the push channel.
// A failed initial listing is reported but does not abort the session.
func (s *Session) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	files, err := s.api.Files(ctx)
	if err != nil {
		fmt.Printf("[Session] initial file listing failed: %v\n", err)
		s.sink.Notify(notify.LevelWarning, fmt.Sprintf("Could not load server files: %v", err))
	} else {
		for _, f := range files {
			s.reg.Put(f)
		}
		s.sink.FilesChanged()
	}
	s.sink.ReadinessChanged(s.reg.GenerationReady())

	go s.channel.Run(ctx)
	go func() {
		defer close(s.done)
		s.Generation.Run(ctx, s.channel.Events())
	}()
}

// Close stops the push channel and the event consumer.
func (s *Session) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.done != nil {
		<-s.done
	}
}

// Files returns the tracked files, newest first.
func (s *Session) Files() []models.UploadedFile {
	return s.reg.List()
}

// Ready reports whether generation can currently be started.
func (s *Session) Ready() bool {
	return s.reg.GenerationReady()
}

// StartGeneration starts a task from the currently tracked files: the
// parsed schedule is required, syllabus and template join when present.
// Status polling starts after the configured delay and runs until the
// task finishes, covering for a silent push channel.
func (s *Session) StartGeneration(ctx context.Context, weekRange string) (string, error) {
	schedule, ok := s.reg.ActiveByCategory(models.CategorySchedule)
	if !ok {
		return "", generation.ErrScheduleNotParsed
	}

	var syllabusID, templateID string
	if f, ok := s.reg.ActiveByCategory(models.CategorySyllabus); ok && f.Parsed() {
		syllabusID = f.FileID
	}
	if f, ok := s.reg.ActiveByCategory(models.CategoryTemplate); ok && f.Parsed() {
		templateID = f.FileID
	}

	taskID, err := s.Generation.Start(ctx, schedule.FileID, syllabusID, templateID, weekRange)
	if err != nil {
		return "", err
	}

	// Duplicate updates from polling plus the push channel are harmless:
	// the controller drops stale and regressing events.
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.StatusCheckDelay()):
		}
		if err := s.Generation.PollOnce(ctx); err != nil {
			if err != generation.ErrNoTask {
				fmt.Printf("[Session] status check for task %s failed: %v\n", taskID, err)
			}
			return
		}
		s.Generation.Poll(ctx, s.cfg.PollInterval())
	}()

	return taskID, nil
}

// Results fetches the current output listing.
func (s *Session) Results(ctx context.Context) ([]models.GenerationResult, error) {
	return s.api.Results(ctx)
}

// Download streams one generated document into w.
func (s *Session) Download(ctx context.Context, filename string, w io.Writer) (int64, error) {
	return s.api.Download(ctx, filename, w)
}
