// Package pdftext flattens PDF documents into plain text for the field
// extraction engine. Row structure is preserved as newlines because several
// extraction patterns are line-oriented.
package pdftext

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Extract returns the text content of a PDF document, pages concatenated in
// order, one line per text row.
//
// The underlying parser panics on some malformed documents; those surface
// as errors so a bad attachment stays an ordinary skip.
func Extract(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("pdf parse: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf open: %w", err)
	}

	var builder strings.Builder
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("pdf page %d: %w", pageNum, err)
		}
		for _, row := range rows {
			for i, word := range row.Content {
				if i > 0 {
					builder.WriteString(" ")
				}
				builder.WriteString(word.S)
			}
			builder.WriteString("\n")
		}
	}
	return builder.String(), nil
}
