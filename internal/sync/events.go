package sync

import "time"

// ChangeEvent announces a successful write to a collection.
type ChangeEvent struct {
	Type string    `json:"type"` // "<resource>.created", ".updated" or ".deleted"
	ID   string    `json:"id"`
	At   time.Time `json:"at"`
}
