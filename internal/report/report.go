// Package report renders completed interview sessions as PDF and HTML.
package report

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/pavelanni/mockinterview/internal/model"
)

// Kind selects the layout of a PDF export.
type Kind string

const (
	KindFull    Kind = "full"
	KindSummary Kind = "summary"
)

const (
	ContentTypePDF  = "application/pdf"
	dateLayout      = "January 2, 2006 at 03:04 PM"
	filenameLayout  = "20060102_150405"
	defaultFilename = "Anonymous"
)

var (
	ErrNotCompleted = errors.New("session is not completed")
	ErrUnknownKind  = errors.New("unknown export kind")
)

// ParseKind validates an export kind taken from a URL or flag.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindFull, KindSummary:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Document is a rendered export ready to be served or written to disk.
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Base64 is the JSON form of a Document used by the base64 export route.
type Base64 struct {
	Filename    string `json:"filename"`
	PDFData     string `json:"pdf_data"`
	ContentType string `json:"content_type"`
}

// Base64 encodes the document body.
func (d *Document) Base64() Base64 {
	return Base64{
		Filename:    d.Filename,
		PDFData:     base64.StdEncoding.EncodeToString(d.Data),
		ContentType: d.ContentType,
	}
}

var unsafeFilenameChars = regexp.MustCompile(`[^\p{L}\p{N}._-]+`)

// Filename builds interview_<kind>_<name>_<timestamp>.pdf.
func Filename(kind Kind, name string, at time.Time) string {
	prefix := "interview_report"
	if kind == KindSummary {
		prefix = "interview_summary"
	}
	name = strings.Trim(unsafeFilenameChars.ReplaceAllString(strings.TrimSpace(name), "_"), "_")
	if name == "" {
		name = defaultFilename
	}
	return fmt.Sprintf("%s_%s_%s.pdf", prefix, name, at.Format(filenameLayout))
}

func checkCompleted(sess *model.Session) error {
	if sess == nil || sess.Status != model.StatusCompleted || sess.FinalReport == nil {
		return ErrNotCompleted
	}
	return nil
}

func scoreText(v float64) string {
	return fmt.Sprintf("%.1f/10", v)
}
