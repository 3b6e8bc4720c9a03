// Package validate performs local pre-upload checks so obviously bad files
// never cost a network transfer. The server re-validates everything; these
// checks only exist for immediate feedback.
package validate

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/lessonforge/docgen-client/internal/models"
)

// Reason identifies why a candidate file was rejected.
type Reason string

const (
	ReasonTooLarge     Reason = "too_large"
	ReasonTooSmall     Reason = "too_small"
	ReasonBadType      Reason = "bad_type"
	ReasonNameTooLong  Reason = "name_too_long"
	ReasonIllegalChars Reason = "illegal_chars"
)

const (
	// MaxFileSize is the largest accepted upload (50 MiB).
	MaxFileSize = 50 * 1024 * 1024
	// MinFileSize filters out empty/truncated files.
	MinFileSize = 100
	// MaxNameLength bounds the original file name.
	MaxNameLength = 100
)

const illegalNameChars = `<>:"/\|?*`

var allowedExtensions = map[models.Category][]string{
	models.CategorySchedule: {".xlsx", ".xls"},
	models.CategorySyllabus: {".docx"},
	models.CategoryTemplate: {".docx"},
}

// Rejection is the error returned when a file fails a local check.
type Rejection struct {
	Reason  Reason
	Message string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Reason, r.Message)
}

// AllowedExtensions returns the extension set accepted for a category.
func AllowedExtensions(category models.Category) []string {
	return allowedExtensions[category]
}

// Check validates a candidate file against the per-category constraints.
// Checks run in a fixed order and stop at the first failure: max size, min
// size, extension, name length, illegal name characters.
func Check(name string, size int64, category models.Category) error {
	if size > MaxFileSize {
		return &Rejection{
			Reason:  ReasonTooLarge,
			Message: fmt.Sprintf("file is %d bytes, maximum allowed is %d", size, MaxFileSize),
		}
	}
	if size < MinFileSize {
		return &Rejection{
			Reason:  ReasonTooSmall,
			Message: fmt.Sprintf("file is %d bytes, minimum required is %d", size, MinFileSize),
		}
	}

	ext := strings.ToLower(filepath.Ext(name))
	allowed := allowedExtensions[category]
	ok := false
	for _, a := range allowed {
		if ext == a {
			ok = true
			break
		}
	}
	if !ok {
		return &Rejection{
			Reason:  ReasonBadType,
			Message: fmt.Sprintf("%s: expected one of %s", name, strings.Join(allowed, ", ")),
		}
	}

	// Character count, not bytes: multibyte names are common here.
	if utf8.RuneCountInString(name) > MaxNameLength {
		return &Rejection{
			Reason:  ReasonNameTooLong,
			Message: fmt.Sprintf("file name exceeds %d characters", MaxNameLength),
		}
	}
	if strings.ContainsAny(name, illegalNameChars) {
		return &Rejection{
			Reason:  ReasonIllegalChars,
			Message: "file name contains one of " + illegalNameChars,
		}
	}
	return nil
}
