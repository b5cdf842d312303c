package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"go-ocr-inventory/internal/controller"
	"go-ocr-inventory/internal/grouping"
	"go-ocr-inventory/internal/middleware"
	"go-ocr-inventory/internal/model"
	"go-ocr-inventory/internal/util"
	"go-ocr-inventory/pkg/apierror"
)

// Inventory is the read and delete side of the controller.
type Inventory interface {
	Inventory() model.Inventory
	Group(key string) (model.DocumentGroup, bool)
	FetchNow(ctx context.Context) error
	DeleteGroup(ctx context.Context, key string, confirmer controller.Confirmer) error
}

// Confirmations issues and checks delete confirmation tokens.
type Confirmations interface {
	Issue(key string) (string, time.Time, error)
	Verify(token string, key string) error
}

type DocumentsHandler struct {
	inventory     Inventory
	confirmations Confirmations
	downloadBase  string
}

func NewDocumentsHandler(inventory Inventory, confirmations Confirmations, downloadBase string) *DocumentsHandler {
	return &DocumentsHandler{
		inventory:     inventory,
		confirmations: confirmations,
		downloadBase:  strings.TrimRight(downloadBase, "/"),
	}
}

func (h *DocumentsHandler) List(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, h.inventoryView(h.inventory.Inventory()))
}

func (h *DocumentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	key := documentKey(r)
	if key == "" {
		writeError(w, apierror.New("BAD_REQUEST", "document key is required", "key", http.StatusBadRequest))
		return
	}

	group, ok := h.inventory.Group(key)
	if !ok {
		writeError(w, model.ErrGroupNotFound)
		return
	}

	writeSuccess(w, http.StatusOK, h.documentView(group))
}

// Refresh reconciles right away instead of waiting for the next poll.
func (h *DocumentsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.inventory.FetchNow(r.Context()); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, h.inventoryView(h.inventory.Inventory()))
}

// Delete is a two-step request. Without a confirmation token the group is
// left alone and a 409 carries a token for the prompt; repeating the
// request with that token in X-Confirm-Token deletes the group.
func (h *DocumentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	key := documentKey(r)
	if key == "" {
		writeError(w, apierror.New("BAD_REQUEST", "document key is required", "key", http.StatusBadRequest))
		return
	}

	token := strings.TrimSpace(r.Header.Get(middleware.ConfirmTokenHeader))
	var pending *controller.DeleteRequest

	confirmer := controller.ConfirmFunc(func(_ context.Context, req controller.DeleteRequest) (bool, error) {
		if token == "" {
			pending = &req
			return false, nil
		}
		if err := h.confirmations.Verify(token, req.Key); err != nil {
			return false, err
		}
		return true, nil
	})

	err := h.inventory.DeleteGroup(r.Context(), key, confirmer)
	switch {
	case err == nil:
		writeSuccess(w, http.StatusOK, map[string]string{"deleted": key})
	case errors.Is(err, model.ErrDeleteCancelled) && pending != nil:
		h.requireConfirmation(w, *pending)
	default:
		writeError(w, err)
	}
}

func (h *DocumentsHandler) requireConfirmation(w http.ResponseWriter, req controller.DeleteRequest) {
	token, expiresAt, err := h.confirmations.Issue(req.Key)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusConflict, model.APIResponse{
		Success: false,
		Data: model.DeleteConfirmation{
			Key:       req.Key,
			Prompt:    req.Prompt(),
			Token:     token,
			ExpiresAt: expiresAt,
		},
		Error: &model.APIError{
			Code:    "CONFIRMATION_REQUIRED",
			Message: "Repeat the request with the confirm token to delete this document",
		},
	})
}

func (h *DocumentsHandler) inventoryView(inv model.Inventory) model.InventoryView {
	view := model.InventoryView{
		Documents:   make([]model.DocumentView, 0, len(inv.Groups)),
		RecordCount: inv.RecordCount,
	}
	if !inv.ReconciledAt.IsZero() {
		at := inv.ReconciledAt
		view.ReconciledAt = &at
	}

	for _, group := range inv.Groups {
		view.Documents = append(view.Documents, h.documentView(group))
	}

	return view
}

func (h *DocumentsHandler) documentView(group model.DocumentGroup) model.DocumentView {
	view := model.DocumentView{
		Key:         group.Key,
		DisplayName: group.DisplayName,
		FileCount:   len(group.Files),
		Files:       make([]model.FileView, 0, len(group.Files)),
	}

	for _, file := range group.Files {
		view.TotalSize += file.Size
		view.Files = append(view.Files, model.FileView{
			Name:        file.Name,
			Path:        file.Path,
			Size:        file.Size,
			SizeHuman:   util.HumanSize(file.Size),
			Label:       grouping.Classify(file.Name),
			DownloadURL: h.downloadURL(file),
		})
	}

	return view
}

func (h *DocumentsHandler) downloadURL(file model.RemoteFileRecord) string {
	target := file.Path
	if target == "" {
		target = file.Name
	}

	segments := strings.Split(strings.Trim(strings.ReplaceAll(target, `\`, "/"), "/"), "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}

	return h.downloadBase + "/" + strings.Join(segments, "/")
}

func documentKey(r *http.Request) string {
	raw := chi.URLParam(r, "*")
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}
	return strings.Trim(raw, "/")
}
