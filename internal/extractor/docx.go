package extractor

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

func extractDOCX(data []byte) (string, error) {
	archive, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadableDocument, err)
	}
	defer archive.Close()

	paragraphs, err := bodyParagraphs(archive.Editable().GetContent())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadableDocument, err)
	}
	return strings.Join(paragraphs, "\n"), nil
}

// bodyParagraphs walks word/document.xml and returns the text of each
// top-level body paragraph in document order. Table cells and text boxes
// anchored in drawings are skipped.
func bodyParagraphs(documentXML string) ([]string, error) {
	decoder := xml.NewDecoder(strings.NewReader(documentXML))

	var (
		paragraphs   []string
		current      strings.Builder
		tableDepth   int
		drawingDepth int
		paragraphLvl int
		runDepth     int
		inText       bool
	)

	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch element := token.(type) {
		case xml.StartElement:
			if isDrawingContainer(element.Name.Local) {
				drawingDepth++
				continue
			}
			if drawingDepth > 0 {
				continue
			}
			switch element.Name.Local {
			case "tbl":
				tableDepth++
			case "p":
				if tableDepth > 0 {
					continue
				}
				if paragraphLvl == 0 {
					current.Reset()
				}
				paragraphLvl++
			case "r":
				runDepth++
			case "t":
				inText = paragraphLvl > 0 && runDepth > 0
			case "tab":
				if paragraphLvl > 0 && runDepth > 0 {
					current.WriteByte('\t')
				}
			case "br", "cr":
				if paragraphLvl > 0 && runDepth > 0 {
					current.WriteByte('\n')
				}
			}
		case xml.EndElement:
			if isDrawingContainer(element.Name.Local) {
				drawingDepth--
				continue
			}
			if drawingDepth > 0 {
				continue
			}
			switch element.Name.Local {
			case "tbl":
				tableDepth--
			case "p":
				if tableDepth > 0 || paragraphLvl == 0 {
					continue
				}
				paragraphLvl--
				if paragraphLvl == 0 {
					paragraphs = append(paragraphs, current.String())
				}
			case "r":
				if runDepth > 0 {
					runDepth--
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText && drawingDepth == 0 {
				current.Write(element)
			}
		}
	}

	return paragraphs, nil
}

// isDrawingContainer reports elements whose content Word renders outside the
// paragraph flow. Text boxes appear twice, under mc:Choice and mc:Fallback.
func isDrawingContainer(local string) bool {
	switch local {
	case "AlternateContent", "drawing", "pict", "object", "txbxContent":
		return true
	default:
		return false
	}
}
