// Package models contains domain types for the financial statement processor and viewer.
package models

import (
	"fmt"
	"time"
)

// FileInfo represents metadata about a workbook held in temporary storage
// by the processing service.
type FileInfo struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// FileSelection is the file a user picked for upload. A new selection
// replaces the previous one wholesale.
type FileSelection struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	SizeBytes  int64     `json:"sizeBytes"`
	Extension  string    `json:"extension"` // lower-case, without the dot
	SelectedAt time.Time `json:"selectedAt"`
}

// SizeLabel renders the selection size in megabytes with two decimals.
func (f FileSelection) SizeLabel() string {
	return fmt.Sprintf("%.2f MB", float64(f.SizeBytes)/1024/1024)
}
