package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-ocr-inventory/internal/ocrclient"
)

// Linker builds OCR service URLs for output files.
type Linker interface {
	DownloadURL(remotePath string) (string, error)
}

type DownloadHandler struct {
	linker Linker
}

func NewDownloadHandler(linker Linker) *DownloadHandler {
	return &DownloadHandler{linker: linker}
}

// Download redirects to the OCR service download endpoint. The file itself
// never passes through the console.
func (h *DownloadHandler) Download(w http.ResponseWriter, r *http.Request) {
	target, err := h.linker.DownloadURL(chi.URLParam(r, "*"))
	if err != nil {
		writeError(w, err)
		return
	}

	http.Redirect(w, r, target, http.StatusFound)
}

var _ Linker = (*ocrclient.Client)(nil)
