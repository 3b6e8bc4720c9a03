// Package stubserver is an in-memory document-generation server with the
// full client-facing contract: category uploads, parsing, the generation
// task lifecycle with pause/resume/stop, result downloads and the
// websocket progress broadcast. It exists for development and for
// end-to-end tests; generated documents are placeholders.
package stubserver

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/lessonforge/docgen-client/internal/models"
)

// Options tunes the stub's pacing. The zero value serves tests; Default
// paces generation like a real server.
type Options struct {
	// StepDelay is the pause between generation steps.
	StepDelay time.Duration
	// TotalWeeks is the step count when no week range is given.
	TotalWeeks int
}

// Default returns interactive-use pacing.
func Default() Options {
	return Options{StepDelay: 500 * time.Millisecond, TotalWeeks: 16}
}

type fileRecord struct {
	Filename     string            `json:"filename"`
	Category     models.Category   `json:"type"`
	Size         int64             `json:"size"`
	UploadedAt   time.Time         `json:"uploaded_at"`
	Status       models.FileStatus `json:"status"`
	ParsedData   any               `json:"parsed_data,omitempty"`
	Error        string            `json:"error_message,omitempty"`
	ErrorDetails string            `json:"error_details,omitempty"`
}

type task struct {
	mu          sync.Mutex
	id          string
	status      models.TaskStatus
	progress    int
	total       int
	current     string
	err         string
	resultFiles []string
}

// Server holds all stub state in memory.
type Server struct {
	e    *echo.Echo
	hub  *Hub
	opts Options

	mu         sync.RWMutex
	files      map[string]*fileRecord
	tasks      map[string]*task
	results    []models.GenerationResult
	resultData map[string][]byte
}

// New builds a stub server with its routes registered.
func New(opts Options) *Server {
	if opts.TotalWeeks <= 0 {
		opts.TotalWeeks = 16
	}

	s := &Server{
		e:          echo.New(),
		hub:        NewHub(),
		opts:       opts,
		files:      make(map[string]*fileRecord),
		tasks:      make(map[string]*task),
		resultData: make(map[string][]byte),
	}

	s.e.HideBanner = true
	s.e.HTTPErrorHandler = detailErrorHandler
	s.e.Use(middleware.Recover())

	s.e.POST("/api/upload/:category", s.handleUpload)
	s.e.POST("/api/parse/:category", s.handleParse)
	s.e.GET("/api/files", s.handleListFiles)
	s.e.DELETE("/api/files/:id", s.handleDeleteFile)

	s.e.POST("/api/generate", s.handleGenerate)
	s.e.GET("/api/generate/status/:id", s.handleTaskStatus)
	s.e.POST("/api/generate/:id/pause", s.handlePause)
	s.e.POST("/api/generate/:id/resume", s.handleResume)
	s.e.POST("/api/generate/:id/stop", s.handleStop)
	s.e.GET("/api/generate/results", s.handleResults)
	s.e.GET("/api/download/:filename", s.handleDownload)

	s.e.GET("/ws/progress", s.hub.Handle)

	return s
}

// Echo exposes the underlying echo instance so callers can serve it with
// httptest or a real listener.
func (s *Server) Echo() *echo.Echo {
	return s.e
}

// Start serves on addr until the process exits.
func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

// detailErrorHandler renders every error as {"detail": message}, the shape
// the client's error extraction expects.
func detailErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	detail := "internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		detail = fmt.Sprintf("%v", he.Message)
	}

	c.JSON(status, map[string]string{"detail": detail})
}
