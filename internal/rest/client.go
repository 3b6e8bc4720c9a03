// Package rest is the typed HTTP client for the document-generation
// service: upload, parse, file management, generation control and result
// download. Transport failures and server rejections surface as distinct
// error types so callers can react per the error taxonomy.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lessonforge/docgen-client/internal/models"
)

// Client talks to one document-generation server.
type Client struct {
	baseURL string
	hc      *http.Client
}

// NewClient creates a Client for baseURL (scheme://host[:port], no trailing
// slash required). A zero timeout disables the client-side deadline.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: timeout},
	}
}

// UploadResponse is the server's answer to a successful upload.
type UploadResponse struct {
	FileID   string `json:"file_id"`
	Filename string `json:"filename"`
	Status   string `json:"status"`
}

// ParseResponse is the body of a 2xx parse reply. Status distinguishes a
// successful parse from a structured parse failure delivered with a 2xx.
type ParseResponse struct {
	Status       string          `json:"status"`
	Data         json.RawMessage `json:"data,omitempty"`
	Message      string          `json:"message,omitempty"`
	Detail       string          `json:"detail,omitempty"`
	ErrorDetails string          `json:"error_details,omitempty"`
}

// Success reports whether the server parsed the file.
func (r *ParseResponse) Success() bool { return r.Status == "success" }

// GenerateRequest starts a generation task. Syllabus and template are
// optional; WeekRange is "start-end" or empty for all weeks.
type GenerateRequest struct {
	ScheduleFileID string `json:"schedule_file_id"`
	SyllabusFileID string `json:"syllabus_file_id,omitempty"`
	TemplateFileID string `json:"template_file_id,omitempty"`
	WeekRange      string `json:"week_range,omitempty"`
}

// TaskRecord is the polled view of a generation task.
type TaskRecord struct {
	Status      models.TaskStatus `json:"status"`
	Progress    int               `json:"progress"`
	Total       int               `json:"total,omitempty"`
	Current     string            `json:"current,omitempty"`
	Error       string            `json:"error,omitempty"`
	ResultFiles []string          `json:"result_files,omitempty"`
}

// Event converts a polled record into the progress-event shape so polling
// and the push channel feed the same transition logic.
func (r *TaskRecord) Event(taskID string) models.ProgressEvent {
	return models.ProgressEvent{
		Type:     models.EventTypeProgress,
		TaskID:   taskID,
		Status:   r.Status,
		Progress: r.Progress,
		Current:  r.Current,
		Error:    r.Error,
	}
}

// TaskAction is the reply to a pause/resume/stop request.
type TaskAction struct {
	Status  models.TaskStatus `json:"status"`
	Message string            `json:"message,omitempty"`
	TaskID  string            `json:"task_id,omitempty"`
}

// Upload transfers a file to the category's upload endpoint as
// multipart/form-data and returns the server-issued identifier.
func (c *Client) Upload(ctx context.Context, category models.Category, filename string, r io.Reader) (*UploadResponse, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, &TransportError{Op: "building upload body", Err: err}
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, &TransportError{Op: "reading upload source", Err: err}
	}
	if err := w.Close(); err != nil {
		return nil, &TransportError{Op: "finalizing upload body", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload/"+string(category), body)
	if err != nil {
		return nil, &TransportError{Op: "building upload request", Err: err}
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var out UploadResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Parse asks the server to parse an uploaded file. A 2xx reply is returned
// as-is; the caller inspects Status since parse failures arrive as
// structured 2xx payloads.
func (c *Client) Parse(ctx context.Context, category models.Category, fileID string) (*ParseResponse, error) {
	var out ParseResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/parse/"+string(category),
		map[string]string{"file_id": fileID}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Files fetches the server's file listing, keyed by file id. The id is
// copied into each record since the wire format only carries it as the key.
func (c *Client) Files(ctx context.Context) (map[string]models.UploadedFile, error) {
	var out struct {
		Files map[string]models.UploadedFile `json:"files"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/files", nil, &out); err != nil {
		return nil, err
	}
	for id, f := range out.Files {
		f.FileID = id
		out.Files[id] = f
	}
	return out.Files, nil
}

// DeleteFile removes a file server-side. Callers must not drop local state
// unless this returns nil.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/files/"+url.PathEscape(fileID), nil, nil)
}

// Generate starts a generation task and returns its id.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	var out struct {
		TaskID string `json:"task_id"`
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/generate", req, &out); err != nil {
		return "", err
	}
	if out.TaskID == "" {
		return "", &ServerError{StatusCode: http.StatusOK, Detail: "server did not return a task id"}
	}
	return out.TaskID, nil
}

// TaskStatus polls the current state of a generation task.
func (c *Client) TaskStatus(ctx context.Context, taskID string) (*TaskRecord, error) {
	var out TaskRecord
	err := c.doJSON(ctx, http.MethodGet, "/api/generate/status/"+url.PathEscape(taskID), nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// PauseTask asks the server to pause a running task.
func (c *Client) PauseTask(ctx context.Context, taskID string) (*TaskAction, error) {
	return c.taskAction(ctx, taskID, "pause")
}

// ResumeTask asks the server to resume a paused task.
func (c *Client) ResumeTask(ctx context.Context, taskID string) (*TaskAction, error) {
	return c.taskAction(ctx, taskID, "resume")
}

// StopTask asks the server to terminate a task.
func (c *Client) StopTask(ctx context.Context, taskID string) (*TaskAction, error) {
	return c.taskAction(ctx, taskID, "stop")
}

func (c *Client) taskAction(ctx context.Context, taskID, action string) (*TaskAction, error) {
	var out TaskAction
	path := fmt.Sprintf("/api/generate/%s/%s", url.PathEscape(taskID), action)
	if err := c.doJSON(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Results fetches the output-document listing.
func (c *Client) Results(ctx context.Context) ([]models.GenerationResult, error) {
	var out struct {
		Results []models.GenerationResult `json:"results"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/generate/results", nil, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// Download streams a generated document into w and returns the byte count.
func (c *Client) Download(ctx context.Context, filename string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/download/"+url.PathEscape(filename), nil)
	if err != nil {
		return 0, &TransportError{Op: "building download request", Err: err}
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return 0, &TransportError{Op: "downloading " + filename, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, serverError(resp)
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, &TransportError{Op: "reading download body", Err: err}
	}
	return n, nil
}

// doJSON issues a request with an optional JSON body and decodes a JSON
// reply into out (which may be nil).
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &TransportError{Op: "encoding request body", Err: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &TransportError{Op: "building request", Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.hc.Do(req)
	if err != nil {
		return &TransportError{Op: req.Method + " " + req.URL.Path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return serverError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: "decoding response body", Err: err}
	}
	return nil
}

// serverError extracts the {"detail": ...} message from an error reply,
// falling back to the raw body or the HTTP status text.
func serverError(resp *http.Response) error {
	se := &ServerError{StatusCode: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil || len(data) == 0 {
		se.Detail = http.StatusText(resp.StatusCode)
		return se
	}

	var payload struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(data, &payload) == nil && payload.Detail != "" {
		se.Detail = payload.Detail
	} else {
		se.Detail = strings.TrimSpace(string(data))
	}
	return se
}
