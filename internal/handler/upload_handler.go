package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go-ocr-inventory/internal/model"
	"go-ocr-inventory/internal/ocrclient"
	"go-ocr-inventory/internal/uploader"
	"go-ocr-inventory/pkg/apierror"
)

// Uploads is the upload side of the controller.
type Uploads interface {
	Submit(ctx context.Context, file *uploader.File) (json.RawMessage, error)
	Session() model.UploadSession
	UploadEnabled() bool
}

type UploadHandler struct {
	uploads       Uploads
	maxUploadSize int64
}

func NewUploadHandler(uploads Uploads, maxUploadSize int64) *UploadHandler {
	return &UploadHandler{uploads: uploads, maxUploadSize: maxUploadSize}
}

// Upload streams the multipart "file" part to the OCR service. Other parts
// are skipped.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if !h.uploads.UploadEnabled() {
		writeError(w, model.ErrUploadInProgress)
		return
	}

	if h.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	}

	reader, err := r.MultipartReader()
	if err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid multipart body", "", http.StatusBadRequest))
		return
	}

	for {
		part, nextErr := reader.NextPart()
		if errors.Is(nextErr, io.EOF) {
			writeError(w, apierror.New("BAD_REQUEST", "multipart field 'file' is required", ocrclient.FileField, http.StatusBadRequest))
			return
		}
		if nextErr != nil {
			if isPayloadTooLarge(nextErr) {
				writePayloadTooLarge(w)
				return
			}
			writeError(w, apierror.New("BAD_REQUEST", "invalid multipart body", "", http.StatusBadRequest))
			return
		}

		if part.FormName() != ocrclient.FileField || part.FileName() == "" {
			_ = part.Close()
			continue
		}

		result, submitErr := h.uploads.Submit(r.Context(), &uploader.File{
			Name:    part.FileName(),
			Content: part,
		})
		_ = part.Close()

		if submitErr != nil {
			if isPayloadTooLarge(submitErr) {
				writePayloadTooLarge(w)
				return
			}
			writeError(w, submitErr)
			return
		}

		view := model.UploadResultView{Session: h.uploads.Session()}
		if len(result) > 0 {
			view.Result = result
		}
		writeSuccess(w, http.StatusCreated, view)
		return
	}
}

func (h *UploadHandler) Session(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, model.UploadSessionView{
		Session:       h.uploads.Session(),
		UploadEnabled: h.uploads.UploadEnabled(),
	})
}

func writePayloadTooLarge(w http.ResponseWriter) {
	writeError(w, apierror.New("PAYLOAD_TOO_LARGE", "request body exceeds MAX_UPLOAD_SIZE", "MAX_UPLOAD_SIZE", http.StatusRequestEntityTooLarge))
}

func isPayloadTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return true
	}

	return strings.Contains(strings.ToLower(err.Error()), "request body too large")
}
