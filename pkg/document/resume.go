// Package document runs local checks on an uploaded resume before it is
// forwarded to the backend, so that obviously broken files fail fast instead
// of after a five minute round trip.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

const (
	MIMEPDF  = "application/pdf"
	MIMEDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var (
	ErrEmpty       = errors.New("resume file is empty")
	ErrTooLarge    = errors.New("resume file is too large")
	ErrUnsupported = errors.New("only PDF and DOCX resumes are supported")
	ErrSpoofed     = errors.New("file content does not match its extension")
	ErrUnreadable  = errors.New("could not read any text from the resume")
)

// Magic byte prefixes per allowed extension
var magicBytes = map[string][]byte{
	".pdf":  []byte("%PDF"),
	".docx": {0x50, 0x4B, 0x03, 0x04}, // ZIP (PK..)
}

// Detected MIME types accepted per extension. DOCX is a ZIP container and is
// sometimes sniffed as plain zip.
var allowedMIME = map[string][]string{
	".pdf":  {MIMEPDF},
	".docx": {MIMEDOCX, "application/zip"},
}

// Resume is an uploaded resume that passed preflight.
type Resume struct {
	Filename  string
	Extension string
	MIME      string
	Text      string
	Data      []byte
}

// ContentType is the canonical MIME type to forward with the upload.
func (r *Resume) ContentType() string {
	if r.Extension == ".pdf" {
		return MIMEPDF
	}
	return MIMEDOCX
}

// Inspect validates extension, magic bytes and sniffed MIME type, then
// extracts the text to prove the document is readable.
func Inspect(filename string, data []byte, maxBytes int64) (*Resume, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: limit is %d MB", ErrTooLarge, maxBytes>>20)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	sig, ok := magicBytes[ext]
	if !ok {
		return nil, ErrUnsupported
	}
	if !bytes.HasPrefix(data, sig) {
		return nil, ErrSpoofed
	}

	detected := mimetype.Detect(data)
	if !mimeAllowed(ext, detected) {
		return nil, fmt.Errorf("%w (detected %s)", ErrSpoofed, detected.String())
	}

	text, err := ExtractText(ext, data)
	if err != nil {
		return nil, err
	}

	return &Resume{
		Filename:  filepath.Base(filename),
		Extension: ext,
		MIME:      detected.String(),
		Text:      text,
		Data:      data,
	}, nil
}

func mimeAllowed(ext string, detected *mimetype.MIME) bool {
	for _, allowed := range allowedMIME[ext] {
		if detected.Is(allowed) {
			return true
		}
	}
	return false
}

// ExtractText returns the plain text of a PDF or DOCX document.
func ExtractText(ext string, data []byte) (text string, err error) {
	// both parsers panic on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: %v", ErrUnreadable, r)
		}
	}()

	switch ext {
	case ".pdf":
		text, err = extractPDF(data)
	case ".docx":
		text, err = extractDOCX(data)
	default:
		return "", ErrUnsupported
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrUnreadable
	}
	return text, nil
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	defer doc.Close()

	return stripXML(doc.Editable().GetContent()), nil
}

// stripXML drops the WordprocessingML markup GetContent returns.
func stripXML(content string) string {
	var sb strings.Builder
	inTag := false
	for _, r := range content {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			sb.WriteByte(' ')
		case !inTag:
			sb.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}
