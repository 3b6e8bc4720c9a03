// Package uploader drives the upload/parse/delete lifecycle of input
// files: client-side validation, transfer, the delayed parse request and
// the bookkeeping that keeps the registry and the presentation in sync.
package uploader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/lessonforge/docgen-client/internal/models"
	"github.com/lessonforge/docgen-client/internal/notify"
	"github.com/lessonforge/docgen-client/internal/registry"
	"github.com/lessonforge/docgen-client/internal/rest"
	"github.com/lessonforge/docgen-client/internal/validate"
)

// ErrNotTracked is returned when a parse or delete names a file id the
// registry no longer holds.
var ErrNotTracked = errors.New("file is not tracked")

// API is the server surface the coordinator needs.
type API interface {
	Upload(ctx context.Context, category models.Category, filename string, r io.Reader) (*rest.UploadResponse, error)
	Parse(ctx context.Context, category models.Category, fileID string) (*rest.ParseResponse, error)
	DeleteFile(ctx context.Context, fileID string) error
}

// Coordinator owns the upload lifecycle for one session.
type Coordinator struct {
	api        API
	reg        *registry.Registry
	sink       notify.Sink
	parseDelay time.Duration
}

// New wires a coordinator. parseDelay is the pause between a finished
// upload and its automatic parse request; zero parses immediately.
func New(api API, reg *registry.Registry, sink notify.Sink, parseDelay time.Duration) *Coordinator {
	if sink == nil {
		sink = notify.Discard
	}
	return &Coordinator{api: api, reg: reg, sink: sink, parseDelay: parseDelay}
}

// Upload validates and transfers one file, registers it and schedules the
// automatic parse. Validation rejections never reach the network.
func (c *Coordinator) Upload(ctx context.Context, category models.Category, name string, size int64, r io.Reader) (string, error) {
	if err := validate.Check(name, size, category); err != nil {
		c.sink.Notify(notify.LevelError, fmt.Sprintf("%s rejected: %v", name, err))
		return "", err
	}

	resp, err := c.api.Upload(ctx, category, name, r)
	if err != nil {
		fmt.Printf("[Uploader] upload of %s failed: %v\n", name, err)
		c.sink.Notify(notify.LevelError, fmt.Sprintf("Upload of %s failed: %v", name, err))
		c.sink.UploadReset(category)
		return "", err
	}

	c.reg.Put(models.UploadedFile{
		FileID:     resp.FileID,
		Category:   category,
		Name:       resp.Filename,
		SizeBytes:  size,
		UploadedAt: time.Now(),
		Status:     models.FileStatusUploaded,
	})
	c.sink.Notify(notify.LevelSuccess, fmt.Sprintf("Uploaded %s", resp.Filename))
	c.sink.FilesChanged()
	c.sink.ReadinessChanged(c.reg.GenerationReady())

	c.scheduleParse(ctx, resp.FileID)
	return resp.FileID, nil
}

// scheduleParse runs the automatic parse after the configured delay. The
// caller's context usually ends with the upload request, so the parse runs
// detached from it; a deleted file makes the parse a silent no-op instead.
func (c *Coordinator) scheduleParse(ctx context.Context, fileID string) {
	parseCtx := context.WithoutCancel(ctx)
	go func() {
		if c.parseDelay > 0 {
			time.Sleep(c.parseDelay)
		}
		if err := c.Parse(parseCtx, fileID); err != nil && !errors.Is(err, ErrNotTracked) {
			fmt.Printf("[Uploader] scheduled parse of %s failed: %v\n", fileID, err)
		}
	}()
}

// Parse requests a server-side parse of a tracked file and records the
// outcome. A parse that finishes after the entry was replaced or removed
// leaves the registry untouched.
func (c *Coordinator) Parse(ctx context.Context, fileID string) error {
	f, ok := c.reg.Get(fileID)
	if !ok {
		return ErrNotTracked
	}

	seq, ok := c.reg.BeginParse(fileID)
	if !ok {
		return ErrNotTracked
	}
	c.sink.Notify(notify.LevelInfo, fmt.Sprintf("Parsing %s", f.Name))
	c.sink.FilesChanged()
	c.sink.ReadinessChanged(c.reg.GenerationReady())

	resp, err := c.api.Parse(ctx, f.Category, fileID)
	switch {
	case err != nil:
		c.reg.FinishParse(fileID, seq, func(uf *models.UploadedFile) {
			uf.Status = models.FileStatusError
			uf.ErrorMessage = err.Error()
		})
		c.sink.Notify(notify.LevelError, fmt.Sprintf("Parse of %s failed: %v", f.Name, err))

	case !resp.Success():
		c.reg.FinishParse(fileID, seq, func(uf *models.UploadedFile) {
			uf.Status = models.FileStatusError
			uf.ErrorMessage = resp.Detail
			uf.ErrorDetail = resp.ErrorDetails
		})
		c.sink.Notify(notify.LevelError, fmt.Sprintf("Parse of %s failed: %s", f.Name, resp.Detail))

	default:
		c.reg.FinishParse(fileID, seq, func(uf *models.UploadedFile) {
			uf.Status = models.FileStatusParsed
			uf.ParsedData = resp.Data
			uf.ErrorMessage = ""
			uf.ErrorDetail = ""
		})
		msg := resp.Message
		if msg == "" {
			msg = fmt.Sprintf("Parsed %s", f.Name)
		}
		c.sink.Notify(notify.LevelSuccess, msg)
	}

	c.sink.FilesChanged()
	c.sink.ReadinessChanged(c.reg.GenerationReady())
	return err
}

// Delete removes a file on the server and, only on success, locally.
func (c *Coordinator) Delete(ctx context.Context, fileID string) error {
	f, ok := c.reg.Get(fileID)
	if !ok {
		return ErrNotTracked
	}

	if err := c.api.DeleteFile(ctx, fileID); err != nil {
		c.sink.Notify(notify.LevelError, fmt.Sprintf("Delete of %s failed: %v", f.Name, err))
		return err
	}

	c.reg.Delete(fileID)
	c.sink.Notify(notify.LevelInfo, fmt.Sprintf("Deleted %s", f.Name))
	c.sink.UploadReset(f.Category)
	c.sink.FilesChanged()
	c.sink.ReadinessChanged(c.reg.GenerationReady())
	return nil
}
