package model

import "time"

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

type FileView struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Size        int64  `json:"size"`
	SizeHuman   string `json:"size_human"`
	Label       string `json:"label"`
	DownloadURL string `json:"download_url"`
}

type DocumentView struct {
	Key         string     `json:"key"`
	DisplayName string     `json:"display_name"`
	FileCount   int        `json:"file_count"`
	TotalSize   int64      `json:"total_size"`
	Files       []FileView `json:"files"`
}

type InventoryView struct {
	Documents    []DocumentView `json:"documents"`
	RecordCount  int            `json:"record_count"`
	ReconciledAt *time.Time     `json:"reconciled_at,omitempty"`
}

type UploadSessionView struct {
	Session       UploadSession `json:"session"`
	UploadEnabled bool          `json:"upload_enabled"`
}

type UploadResultView struct {
	Session UploadSession `json:"session"`
	Result  any           `json:"result,omitempty"`
}

type DeleteConfirmation struct {
	Key       string    `json:"key"`
	Prompt    string    `json:"prompt"`
	Token     string    `json:"confirm_token"`
	ExpiresAt time.Time `json:"expires_at"`
}
