package model

import "time"

type UploadPhase string

const (
	UploadPhaseIdle       UploadPhase = "idle"
	UploadPhaseValidating UploadPhase = "validating"
	UploadPhaseUploading  UploadPhase = "uploading"
	UploadPhaseProcessing UploadPhase = "processing"
	UploadPhaseSucceeded  UploadPhase = "succeeded"
	UploadPhaseFailed     UploadPhase = "failed"
)

// Active reports whether the phase belongs to an in-flight upload.
func (p UploadPhase) Active() bool {
	switch p {
	case UploadPhaseValidating, UploadPhaseUploading, UploadPhaseProcessing:
		return true
	default:
		return false
	}
}

type UploadSession struct {
	ID         string      `json:"id,omitempty"`
	FileName   string      `json:"file_name,omitempty"`
	Phase      UploadPhase `json:"phase"`
	Message    string      `json:"message,omitempty"`
	StartedAt  *time.Time  `json:"started_at,omitempty"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
}

func (s UploadSession) Active() bool {
	return s.Phase.Active()
}
