package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

func extractPDF(data []byte) (text string, err error) {
	// the parser panics on some malformed cross-reference tables
	defer func() {
		if recovered := recover(); recovered != nil {
			text, err = "", fmt.Errorf("%w: malformed pdf", ErrUnreadableDocument)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadableDocument, err)
	}

	return joinPages(reader.NumPage(), func(index int) (string, error) {
		page := reader.Page(index)
		if page.V.IsNull() {
			return "", nil
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", err
		}
		// each text object starts with a newline
		return strings.TrimLeft(content, "\r\n"), nil
	}), nil
}

// joinPages collects pages 1..count separated by newlines. A page that
// errors or panics contributes an empty string.
func joinPages(count int, pageText func(index int) (string, error)) string {
	pages := make([]string, 0, count)
	for index := 1; index <= count; index++ {
		pages = append(pages, safePageText(pageText, index))
	}
	return strings.Join(pages, "\n")
}

func safePageText(pageText func(int) (string, error), index int) (text string) {
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()

	content, err := pageText(index)
	if err != nil {
		return ""
	}
	return content
}
