// Package extractor turns an uploaded file into the payload handed to the
// evaluator: bounded plain text for documents, raw bytes for page images.
package extractor

import (
	"errors"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// MaxTextChars bounds the text forwarded to the evaluator and persisted.
const MaxTextChars = 20000

// DefaultImageMIME is used when an image is recognised by extension only.
const DefaultImageMIME = "image/jpeg"

var (
	// ErrUnsupportedFormat is returned for uploads that are neither an image nor PDF, DOCX or TXT.
	ErrUnsupportedFormat = errors.New("unsupported document type. Please upload PDF, DOCX, or TXT")
	// ErrEmptyContent is returned when a document yields no readable text.
	ErrEmptyContent = errors.New("no readable text found in the uploaded file")
	// ErrUnreadableDocument is returned when a PDF or DOCX container cannot be opened.
	ErrUnreadableDocument = errors.New("the uploaded document could not be read")
)

// Format is the classification of an upload.
type Format string

const (
	FormatImage       Format = "image"
	FormatPDF         Format = "pdf"
	FormatDOCX        Format = "docx"
	FormatTXT         Format = "txt"
	FormatUnsupported Format = "unsupported"
)

var imageExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".webp": {},
	".bmp":  {},
	".gif":  {},
}

// Payload is either a TextPayload or an ImagePayload.
type Payload interface {
	isPayload()
}

// TextPayload holds extracted document text, at most MaxTextChars runes.
type TextPayload struct {
	Text string
}

// ImagePayload holds an image forwarded to the evaluator unchanged.
type ImagePayload struct {
	Data     []byte
	MIMEType string
}

func (TextPayload) isPayload()  {}
func (ImagePayload) isPayload() {}

// Classify decides how an upload is processed using only the filename
// extension and the declared content type.
func Classify(filename, declaredMIME string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	if isImageMIME(declaredMIME) {
		return FormatImage
	}
	if _, ok := imageExtensions[ext]; ok {
		return FormatImage
	}

	switch ext {
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDOCX
	case ".txt":
		return FormatTXT
	default:
		return FormatUnsupported
	}
}

// ResolveImageMIME returns the declared type when it names an image and DefaultImageMIME otherwise.
func ResolveImageMIME(declaredMIME string) string {
	if isImageMIME(declaredMIME) {
		return strings.TrimSpace(declaredMIME)
	}
	return DefaultImageMIME
}

// Extract classifies the upload and produces its payload.
func Extract(filename, declaredMIME string, raw []byte) (Payload, error) {
	var (
		text string
		err  error
	)

	switch Classify(filename, declaredMIME) {
	case FormatImage:
		return ImagePayload{Data: raw, MIMEType: ResolveImageMIME(declaredMIME)}, nil
	case FormatPDF:
		text, err = extractPDF(raw)
	case FormatDOCX:
		text, err = extractDOCX(raw)
	case FormatTXT:
		text = decodeText(raw)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}

	text = truncateRunes(text, MaxTextChars)
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyContent
	}
	return TextPayload{Text: text}, nil
}

func isImageMIME(value string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(value)), "image/")
}

func truncateRunes(value string, limit int) string {
	if utf8.RuneCountInString(value) <= limit {
		return value
	}
	count := 0
	for idx := range value {
		if count == limit {
			return value[:idx]
		}
		count++
	}
	return value
}
