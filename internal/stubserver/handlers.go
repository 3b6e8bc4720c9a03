package stubserver

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/lessonforge/docgen-client/internal/models"
	"github.com/lessonforge/docgen-client/internal/validate"
)

func (s *Server) handleUpload(c echo.Context) error {
	category, err := models.ParseCategory(c.Param("category"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "no file provided")
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	allowed := validate.AllowedExtensions(category)
	ok := false
	for _, a := range allowed {
		if ext == a {
			ok = true
			break
		}
	}
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("invalid file type %s for %s, expected one of %s",
				ext, category, strings.Join(allowed, ", ")))
	}

	src, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable upload")
	}
	defer src.Close()
	if _, err := io.Copy(io.Discard, src); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable upload")
	}

	id := uuid.New().String()
	s.mu.Lock()
	s.files[id] = &fileRecord{
		Filename:   fh.Filename,
		Category:   category,
		Size:       fh.Size,
		UploadedAt: time.Now(),
		Status:     models.FileStatusUploaded,
	}
	s.mu.Unlock()

	return c.JSON(http.StatusOK, map[string]string{
		"file_id":  id,
		"filename": fh.Filename,
		"status":   "success",
	})
}

func (s *Server) handleParse(c echo.Context) error {
	category, err := models.ParseCategory(c.Param("category"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var req struct {
		FileID string `json:"file_id"`
	}
	if err := c.Bind(&req); err != nil || req.FileID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "file_id is required")
	}

	s.mu.Lock()
	f, ok := s.files[req.FileID]
	if !ok {
		s.mu.Unlock()
		return echo.NewHTTPError(http.StatusNotFound, "file not found: "+req.FileID)
	}
	if f.Category != category {
		s.mu.Unlock()
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("file %s is a %s, not a %s", req.FileID, f.Category, category))
	}
	f.Status = models.FileStatusParsing
	s.mu.Unlock()

	// Filenames containing "corrupt" simulate a parse failure so clients
	// can exercise the structured-error path.
	if strings.Contains(strings.ToLower(f.Filename), "corrupt") {
		detail := fmt.Sprintf("could not parse %s", f.Filename)
		errDetails := "unexpected end of document body"
		s.mu.Lock()
		f.Status = models.FileStatusError
		f.Error = detail
		f.ErrorDetails = errDetails
		s.mu.Unlock()
		return c.JSON(http.StatusOK, map[string]string{
			"status":        "error",
			"detail":        detail,
			"error_details": errDetails,
		})
	}

	data := cannedParseData(category, f.Filename)
	s.mu.Lock()
	f.Status = models.FileStatusParsed
	f.ParsedData = data
	f.Error = ""
	f.ErrorDetails = ""
	s.mu.Unlock()

	return c.JSON(http.StatusOK, map[string]any{
		"status":  "success",
		"data":    data,
		"message": fmt.Sprintf("Parsed %s", f.Filename),
	})
}

// cannedParseData fabricates a parse result appropriate to the category.
func cannedParseData(category models.Category, filename string) any {
	if category == models.CategorySchedule {
		return map[string]any{
			"weeks": 16,
			"rows": []map[string]any{
				{"week": 1, "topic": "Introduction", "hours": 2},
				{"week": 2, "topic": "Fundamentals", "hours": 2},
			},
		}
	}
	return map[string]any{
		"filename":        filename,
		"word_count":      1250,
		"paragraph_count": 42,
	}
}

func (s *Server) handleListFiles(c echo.Context) error {
	s.mu.RLock()
	out := make(map[string]*fileRecord, len(s.files))
	for id, f := range s.files {
		cp := *f
		out[id] = &cp
	}
	s.mu.RUnlock()

	return c.JSON(http.StatusOK, map[string]any{"files": out})
}

func (s *Server) handleDeleteFile(c echo.Context) error {
	id := c.Param("id")

	s.mu.Lock()
	_, ok := s.files[id]
	delete(s.files, id)
	s.mu.Unlock()

	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "file not found: "+id)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) handleGenerate(c echo.Context) error {
	var req struct {
		ScheduleFileID string `json:"schedule_file_id"`
		SyllabusFileID string `json:"syllabus_file_id"`
		TemplateFileID string `json:"template_file_id"`
		WeekRange      string `json:"week_range"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	s.mu.RLock()
	f, ok := s.files[req.ScheduleFileID]
	s.mu.RUnlock()
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "file not found: "+req.ScheduleFileID)
	}
	if f.Status != models.FileStatusParsed {
		return echo.NewHTTPError(http.StatusBadRequest, "schedule file is not parsed")
	}

	start, end, err := parseWeekRange(req.WeekRange, s.opts.TotalWeeks)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	t := &task{
		id:     uuid.New().String(),
		status: models.TaskStatusPending,
		total:  end - start + 1,
	}
	s.mu.Lock()
	s.tasks[t.id] = t
	s.mu.Unlock()

	go s.runGeneration(t, start, end)

	return c.JSON(http.StatusOK, map[string]string{
		"task_id": t.id,
		"status":  "started",
	})
}

func (s *Server) lookupTask(c echo.Context) (*task, error) {
	id := c.Param("id")
	s.mu.RLock()
	t, ok := s.tasks[id]
	s.mu.RUnlock()
	if !ok {
		return nil, echo.NewHTTPError(http.StatusNotFound, "task not found: "+id)
	}
	return t, nil
}

func (s *Server) handleTaskStatus(c echo.Context) error {
	t, err := s.lookupTask(c)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return c.JSON(http.StatusOK, map[string]any{
		"status":       t.status,
		"progress":     t.progress,
		"total":        t.total,
		"current":      t.current,
		"error":        t.err,
		"result_files": t.resultFiles,
	})
}

func (s *Server) handlePause(c echo.Context) error {
	t, err := s.lookupTask(c)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != models.TaskStatusRunning && t.status != models.TaskStatusPending {
		return echo.NewHTTPError(http.StatusBadRequest, "task is not running")
	}
	t.status = models.TaskStatusPaused
	return c.JSON(http.StatusOK, map[string]any{"status": t.status, "task_id": t.id})
}

func (s *Server) handleResume(c echo.Context) error {
	t, err := s.lookupTask(c)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != models.TaskStatusPaused {
		return echo.NewHTTPError(http.StatusBadRequest, "task is not paused")
	}
	t.status = models.TaskStatusRunning
	return c.JSON(http.StatusOK, map[string]any{"status": t.status, "task_id": t.id})
}

func (s *Server) handleStop(c echo.Context) error {
	t, err := s.lookupTask(c)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status.Terminal() {
		return echo.NewHTTPError(http.StatusBadRequest, "task already finished")
	}
	t.status = models.TaskStatusStopped
	return c.JSON(http.StatusOK, map[string]any{"status": t.status, "task_id": t.id})
}

func (s *Server) handleResults(c echo.Context) error {
	s.mu.RLock()
	out := make([]models.GenerationResult, len(s.results))
	copy(out, s.results)
	s.mu.RUnlock()

	return c.JSON(http.StatusOK, map[string]any{"results": out})
}

func (s *Server) handleDownload(c echo.Context) error {
	filename := c.Param("filename")

	s.mu.RLock()
	data, ok := s.resultData[filename]
	s.mu.RUnlock()
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "result not found: "+filename)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, "application/octet-stream", data)
}
