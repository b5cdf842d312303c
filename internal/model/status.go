package model

import "time"

type StatusKind string

const (
	StatusError   StatusKind = "error"
	StatusSuccess StatusKind = "success"
	StatusInfo    StatusKind = "info"
)

// StatusKinds lists every message slot in display order.
var StatusKinds = []StatusKind{StatusError, StatusSuccess, StatusInfo}

type StatusMessage struct {
	Kind         StatusKind    `json:"kind"`
	Text         string        `json:"text"`
	ExpiresAfter time.Duration `json:"expires_after_ns,omitempty"`
	SetAt        time.Time     `json:"set_at"`
}
