package mailbox

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"

	gomail "github.com/emersion/go-message/mail"
)

// maxAttachmentBytes caps how much of a single attachment is read. Payment
// advice PDFs are small; anything larger is not one of ours.
const maxAttachmentBytes = 25 * 1024 * 1024

// parsePDFAttachments walks the MIME parts of a raw RFC822 message and
// returns every attachment with a .pdf filename extension.
func parsePDFAttachments(raw []byte) ([]Attachment, error) {
	reader, err := gomail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	var attachments []Attachment
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Keep whatever parsed cleanly before the malformed part.
			break
		}
		header, ok := part.Header.(*gomail.AttachmentHeader)
		if !ok {
			continue
		}
		filename, err := header.Filename()
		if err != nil || filename == "" {
			continue
		}
		if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
			continue
		}
		data, err := io.ReadAll(io.LimitReader(part.Body, maxAttachmentBytes))
		if err != nil {
			continue
		}
		attachments = append(attachments, Attachment{Filename: filename, Data: data})
	}
	return attachments, nil
}
