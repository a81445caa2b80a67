package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"loom/internal/httputil"
	"loom/internal/storage"
)

// presignExpiry bounds how long a signed upload URL stays usable.
const presignExpiry = 15 * time.Minute

// UploadHandler hands out pre-signed upload URLs so attachment bytes go
// straight to object storage.
type UploadHandler struct {
	store  storage.ObjectStore
	logger *slog.Logger
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(store storage.ObjectStore, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{store: store, logger: logger}
}

// SignUploadRequest is the body of POST /api/uploads/sign.
type SignUploadRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
}

// SignUploadResponse carries the upload target and the durable URL the
// client should reference from the attachment it sends with its next turn.
type SignUploadResponse struct {
	Key       string `json:"key"`
	UploadURL string `json:"uploadUrl"`
	PublicURL string `json:"publicUrl"`
	ExpiresIn int    `json:"expiresIn"` // seconds
}

// SignUpload issues a pre-signed PUT URL for one attachment.
// POST /api/uploads/sign
func (h *UploadHandler) SignUpload(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req SignUploadRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validation.ValidateStruct(&req,
		validation.Field(&req.FileName, validation.Required),
		validation.Field(&req.ContentType, validation.Required),
	); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Keys are namespaced per user; path.Base strips any directory
	// components a hostile client put in the file name.
	key := fmt.Sprintf("uploads/%s/%s-%s", userID, uuid.New().String(), path.Base(req.FileName))

	uploadURL, err := h.store.PresignPut(r.Context(), key, presignExpiry)
	if err != nil {
		h.logger.Error("presign upload failed", "user_id", userID, "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "failed to sign upload")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, SignUploadResponse{
		Key:       key,
		UploadURL: uploadURL,
		PublicURL: h.store.PublicURL(key),
		ExpiresIn: int(presignExpiry.Seconds()),
	})
}
