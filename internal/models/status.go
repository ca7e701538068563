package models

// UploadStatus represents the lifecycle state of an upload session.
type UploadStatus string

const (
	UploadStatusIdle      UploadStatus = "idle"
	UploadStatusUploading UploadStatus = "uploading"
	UploadStatusSucceeded UploadStatus = "succeeded"
	UploadStatusFailed    UploadStatus = "failed"
)

// ServiceHealth represents the reachability of the processing service.
type ServiceHealth string

const (
	ServiceHealthUnknown ServiceHealth = "unknown"
	ServiceHealthOnline  ServiceHealth = "online"
	ServiceHealthOffline ServiceHealth = "offline"
)

// Label returns the short status readout shown next to the service name.
func (h ServiceHealth) Label() string {
	switch h {
	case ServiceHealthOnline:
		return "Online"
	case ServiceHealthOffline:
		return "Offline"
	default:
		return "Checking..."
	}
}
