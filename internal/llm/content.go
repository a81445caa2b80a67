package llm

import (
	"fmt"
	"path"
	"strings"

	"loom/internal/domain/models/chat"
	llmsvc "loom/internal/domain/services/llm"
)

// BuildProviderMessages adapts stored messages into the provider-facing
// multimodal shape: a text part for the message body, an image part per image
// attachment (by durable URL), and a file part per file attachment that
// carries a provider-native handle. File attachments without a handle degrade
// to a descriptive text placeholder so the model at least knows the file is
// there.
func BuildProviderMessages(messages []chat.Message) []llmsvc.Message {
	out := make([]llmsvc.Message, 0, len(messages))
	for _, msg := range messages {
		parts := []llmsvc.ContentPart{}

		if strings.TrimSpace(msg.Content) != "" {
			parts = append(parts, llmsvc.ContentPart{Type: llmsvc.PartText, Text: msg.Content})
		}

		for _, att := range msg.Attachments {
			switch att.Kind {
			case chat.AttachmentImage:
				parts = append(parts, llmsvc.ContentPart{
					Type:     llmsvc.PartImage,
					ImageURL: att.URL,
					MimeType: att.MimeType,
				})
			case chat.AttachmentFile:
				if att.ProviderFileURI != "" {
					parts = append(parts, llmsvc.ContentPart{
						Type:     llmsvc.PartFile,
						FileURI:  att.ProviderFileURI,
						MimeType: att.MimeType,
					})
				} else {
					parts = append(parts, llmsvc.ContentPart{
						Type: llmsvc.PartText,
						Text: filePlaceholder(att),
					})
				}
			}
		}

		// A message must carry at least one part.
		if len(parts) == 0 {
			parts = append(parts, llmsvc.ContentPart{Type: llmsvc.PartText, Text: ""})
		}

		out = append(out, llmsvc.Message{Role: msg.Role, Parts: parts})
	}
	return out
}

// filePlaceholder describes a file the model cannot read directly, asking the
// user to supply the content another way.
func filePlaceholder(att chat.Attachment) string {
	name := att.OriginalFileName
	if name == "" {
		name = path.Base(att.ID)
	}

	size := ""
	if att.Bytes > 0 {
		size = fmt.Sprintf(" (%d KB)", att.Bytes/1024)
	}

	switch {
	case att.MimeType == "application/pdf":
		return fmt.Sprintf("[PDF Document: %s%s] - The user uploaded a PDF document. Ask them to paste the text content or describe what they are looking for in it.", name, size)
	case strings.Contains(att.MimeType, "document"):
		return fmt.Sprintf("[Document: %s%s] - The user uploaded a document. Ask them to paste the text content or describe what they are looking for in it.", name, size)
	case att.MimeType == "text/plain" || strings.Contains(att.MimeType, "csv"):
		return fmt.Sprintf("[Text/CSV File: %s%s] - The user uploaded a text or CSV file. Ask them to paste the content for analysis.", name, size)
	default:
		return fmt.Sprintf("[File: %s%s - %s] - The user uploaded a file. Ask them to describe its contents.", name, size, att.MimeType)
	}
}
