package model

import "time"

// RemoteFileRecord is one entry of the OCR service file listing.
type RemoteFileRecord struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// DocumentGroup clusters the output files of one source document.
type DocumentGroup struct {
	Key         string             `json:"key"`
	DisplayName string             `json:"display_name"`
	Files       []RemoteFileRecord `json:"files"`
}

// Inventory is the display state produced by the last successful reconciliation.
type Inventory struct {
	Groups       []DocumentGroup `json:"groups"`
	RecordCount  int             `json:"record_count"`
	ReconciledAt time.Time       `json:"reconciled_at"`
}

// Group returns the group stored under key.
func (inv Inventory) Group(key string) (DocumentGroup, bool) {
	for _, group := range inv.Groups {
		if group.Key == key {
			return group, true
		}
	}

	return DocumentGroup{}, false
}
