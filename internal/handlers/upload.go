package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/Coooder-Crypto/ByteChat/backend/internal/models"
	"github.com/Coooder-Crypto/ByteChat/backend/internal/services"
)

// sniffLen is how much of an upload is inspected to detect its type.
const sniffLen = 3072

// UploadHandler accepts media blobs for use as a message mediaUrl.
type UploadHandler struct {
	media    services.MediaStore
	maxBytes int64
	log      zerolog.Logger
}

// NewUploadHandler creates a new UploadHandler instance.
func NewUploadHandler(media services.MediaStore, maxBytes int64, logger zerolog.Logger) *UploadHandler {
	return &UploadHandler{media: media, maxBytes: maxBytes, log: logger}
}

// Upload handles POST /upload
// Expects a multipart form with an image in the "file" field.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	// Leave room for the multipart envelope around the file itself
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+64*1024)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	if header.Size > h.maxBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "file is too large")
		return
	}

	// Sniff the type from content
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "could not read file")
		return
	}
	head = head[:n]
	contentType := mimetype.Detect(head).String()

	url, err := h.media.Save(r.Context(), header.Filename, contentType, io.MultiReader(bytes.NewReader(head), file))
	if err != nil {
		if errors.Is(err, services.ErrUnsupportedMedia) {
			writeError(w, http.StatusUnsupportedMediaType, err.Error())
			return
		}
		h.log.Error().Err(err).Str("filename", header.Filename).Msg("upload failed")
		writeError(w, http.StatusInternalServerError, "upload failed")
		return
	}

	h.log.Info().Str("url", url).Int64("bytes", header.Size).Str("type", contentType).Msg("media uploaded")
	writeJSON(w, http.StatusOK, models.UploadResponse{URL: url})
}
