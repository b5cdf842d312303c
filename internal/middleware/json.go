package middleware

import (
	"encoding/json"
	"net/http"

	"go-ocr-inventory/internal/model"
)

// writeError writes the console's error envelope from inside middleware,
// where the handler package cannot be imported.
func writeError(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error:   &model.APIError{Code: code, Message: message},
	})
}
