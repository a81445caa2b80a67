package chat

// AttachmentKind distinguishes inline-renderable images from opaque files.
type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "image"
	AttachmentFile  AttachmentKind = "file"
)

// Attachment describes an uploaded file or image referenced by a message.
// It is an inert value type: the bytes live in object storage, the model-native
// handle (if any) lives with the provider. URL must always be usable on its
// own so the message stays renderable after the provider handle expires.
type Attachment struct {
	ID       string         `json:"id"`
	Kind     AttachmentKind `json:"kind"`
	MimeType string         `json:"mime_type"`
	Bytes    int64          `json:"bytes,omitempty"`
	URL      string         `json:"url"`
	Provider string         `json:"provider"` // storage provider tag, e.g. "minio"

	// Provider-native file handle, set only when the model provider required a
	// separate upload for non-image content.
	ProviderFileURI  string `json:"provider_file_uri,omitempty"`
	ProviderFileName string `json:"provider_file_name,omitempty"`

	OriginalFileName string `json:"original_file_name,omitempty"`
	Width            int    `json:"width,omitempty"`
	Height           int    `json:"height,omitempty"`
}
