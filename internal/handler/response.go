package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"go-ocr-inventory/internal/model"
	"go-ocr-inventory/internal/ocrclient"
	"go-ocr-inventory/internal/poller"
	"go-ocr-inventory/pkg/apierror"
)

func writeJSON(w http.ResponseWriter, status int, body model.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, model.APIResponse{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := &model.APIError{
		Code:    "INTERNAL_ERROR",
		Message: "Unexpected server error",
	}

	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		body.Details = apiErr.Details
	} else if errors.Is(err, model.ErrInvalidFileType) {
		status = http.StatusUnsupportedMediaType
		body.Code = string(model.ErrorKindInvalidFileType)
		body.Message = "File type is not accepted"
	} else if errors.Is(err, model.ErrUploadInProgress) {
		status = http.StatusConflict
		body.Code = "UPLOAD_IN_PROGRESS"
		body.Message = "Another upload is still running"
	} else if errors.Is(err, model.ErrUploadRejected) {
		status = http.StatusBadGateway
		body.Code = string(model.ErrorKindUploadRejected)
		body.Message = "The OCR service rejected the upload"
		body.Details = ocrclient.Describe(err)
	} else if errors.Is(err, model.ErrListingUnavailable) {
		status = http.StatusBadGateway
		body.Code = string(model.ErrorKindListingUnavailable)
		body.Message = "The document list could not be loaded"
		body.Details = ocrclient.Describe(err)
	} else if errors.Is(err, model.ErrDeleteFailed) {
		status = http.StatusBadGateway
		body.Code = string(model.ErrorKindDeleteFailed)
		body.Message = "The document could not be deleted"
		body.Details = ocrclient.Describe(err)
	} else if errors.Is(err, model.ErrGroupNotFound) {
		status = http.StatusNotFound
		body.Code = "NOT_FOUND"
		body.Message = "Document not found"
	} else if errors.Is(err, model.ErrInvalidConfirmation) {
		status = http.StatusForbidden
		body.Code = "INVALID_CONFIRMATION"
		body.Message = "Delete confirmation is invalid or expired"
	} else if errors.Is(err, model.ErrDeleteCancelled) {
		status = http.StatusConflict
		body.Code = "CONFIRMATION_REQUIRED"
		body.Message = "Delete must be confirmed"
	} else if errors.Is(err, model.ErrInvalidInput) {
		status = http.StatusBadRequest
		body.Code = "BAD_REQUEST"
		body.Message = "Invalid input"
	} else if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		status = http.StatusGatewayTimeout
		body.Code = "REQUEST_TIMEOUT"
		body.Message = "The request ended before the OCR service answered"
	} else if errors.Is(err, poller.ErrStopped) {
		status = http.StatusServiceUnavailable
		body.Code = "SHUTTING_DOWN"
		body.Message = "The console is shutting down"
	} else {
		// Log unclassified errors so they are visible in container logs.
		slog.Error("unhandled error in writeError", "error", err.Error())
	}

	writeJSON(w, status, model.APIResponse{Success: false, Error: body})
}
