package models

// ProjectInfo identifies a cloud project. The identifier is opaque to the
// sync engine and is used only as a namespace key for local storage and the
// sync-record table.
type ProjectInfo struct {
	ID string `json:"id"`
}
