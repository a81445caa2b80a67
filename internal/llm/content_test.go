package llm

import (
	"strings"
	"testing"

	"loom/internal/domain/models/chat"
	llmsvc "loom/internal/domain/services/llm"
)

func TestBuildProviderMessages_TextOnly(t *testing.T) {
	got := BuildProviderMessages([]chat.Message{
		{Role: chat.RoleUser, Content: "hello"},
		{Role: chat.RoleAssistant, Content: "hi there"},
	})

	if len(got) != 2 {
		t.Fatalf("built %d messages, want 2", len(got))
	}
	if got[0].Role != chat.RoleUser || got[1].Role != chat.RoleAssistant {
		t.Errorf("roles not preserved: %s, %s", got[0].Role, got[1].Role)
	}
	if len(got[0].Parts) != 1 || got[0].Parts[0].Type != llmsvc.PartText || got[0].Parts[0].Text != "hello" {
		t.Errorf("unexpected parts for text message: %+v", got[0].Parts)
	}
}

func TestBuildProviderMessages_ImageAttachment(t *testing.T) {
	got := BuildProviderMessages([]chat.Message{
		{
			Role:    chat.RoleUser,
			Content: "what is in this picture?",
			Attachments: []chat.Attachment{
				{
					ID:       "att-1",
					Kind:     chat.AttachmentImage,
					MimeType: "image/png",
					URL:      "https://cdn.example.com/att-1.png",
				},
			},
		},
	})

	parts := got[0].Parts
	if len(parts) != 2 {
		t.Fatalf("built %d parts, want text + image", len(parts))
	}
	if parts[1].Type != llmsvc.PartImage {
		t.Fatalf("second part type = %s, want image", parts[1].Type)
	}
	if parts[1].ImageURL != "https://cdn.example.com/att-1.png" {
		t.Errorf("image URL = %q", parts[1].ImageURL)
	}
}

func TestBuildProviderMessages_FileWithProviderHandle(t *testing.T) {
	got := BuildProviderMessages([]chat.Message{
		{
			Role: chat.RoleUser,
			Attachments: []chat.Attachment{
				{
					ID:              "att-2",
					Kind:            chat.AttachmentFile,
					MimeType:        "application/pdf",
					ProviderFileURI: "files/abc123",
				},
			},
		},
	})

	parts := got[0].Parts
	if len(parts) != 1 {
		t.Fatalf("built %d parts, want 1", len(parts))
	}
	if parts[0].Type != llmsvc.PartFile || parts[0].FileURI != "files/abc123" {
		t.Errorf("file part = %+v, want provider handle passed through", parts[0])
	}
}

func TestBuildProviderMessages_FilePlaceholders(t *testing.T) {
	tests := []struct {
		name     string
		att      chat.Attachment
		wantText string
	}{
		{
			name: "pdf without handle",
			att: chat.Attachment{
				Kind:             chat.AttachmentFile,
				MimeType:         "application/pdf",
				OriginalFileName: "report.pdf",
			},
			wantText: "[PDF Document: report.pdf",
		},
		{
			name: "csv",
			att: chat.Attachment{
				Kind:             chat.AttachmentFile,
				MimeType:         "text/csv",
				OriginalFileName: "data.csv",
			},
			wantText: "[Text/CSV File: data.csv",
		},
		{
			name: "word document",
			att: chat.Attachment{
				Kind:             chat.AttachmentFile,
				MimeType:         "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
				OriginalFileName: "notes.docx",
			},
			wantText: "[Document: notes.docx",
		},
		{
			name: "unknown type falls back to id",
			att: chat.Attachment{
				ID:       "uploads/u1/att-9",
				Kind:     chat.AttachmentFile,
				MimeType: "application/zip",
			},
			wantText: "[File: att-9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildProviderMessages([]chat.Message{
				{Role: chat.RoleUser, Attachments: []chat.Attachment{tt.att}},
			})
			part := got[0].Parts[0]
			if part.Type != llmsvc.PartText {
				t.Fatalf("part type = %s, want text placeholder", part.Type)
			}
			if !strings.HasPrefix(part.Text, tt.wantText) {
				t.Errorf("placeholder = %q, want prefix %q", part.Text, tt.wantText)
			}
		})
	}
}

func TestBuildProviderMessages_EmptyMessageGetsEmptyTextPart(t *testing.T) {
	got := BuildProviderMessages([]chat.Message{
		{Role: chat.RoleUser, Content: "   "},
	})
	if len(got[0].Parts) != 1 || got[0].Parts[0].Type != llmsvc.PartText {
		t.Errorf("blank message parts = %+v, want single empty text part", got[0].Parts)
	}
}
