package models

import (
	"time"

	"github.com/smazurov/panelnode/internal/updater"
)

// UpdateCheckData contains information about the latest release.
type UpdateCheckData struct {
	CurrentVersion  string    `json:"current_version" example:"1.0.0" doc:"Running version"`
	LatestVersion   string    `json:"latest_version" example:"1.1.0" doc:"Latest published version"`
	ReleaseNotes    string    `json:"release_notes" doc:"Markdown release notes"`
	ReleaseURL      string    `json:"release_url" doc:"URL of the release page"`
	PublishedAt     time.Time `json:"published_at" doc:"When the release was published"`
	AssetSize       int       `json:"asset_size" example:"5242880" doc:"Download size in bytes"`
	UpdateAvailable bool      `json:"update_available" example:"true" doc:"Whether the release is newer than the running version"`
}

// UpdateCheckResponse wraps UpdateCheckData for API responses.
type UpdateCheckResponse struct {
	Body UpdateCheckData
}

// UpdateStatusResponse wraps the updater status.
type UpdateStatusResponse struct {
	Body updater.Status
}

// MessageResponse carries a human-readable result.
type MessageResponse struct {
	Body struct {
		Message string `json:"message" example:"Update applied, restarting" doc:"Status message"`
	}
}

// Message builds a MessageResponse.
func Message(text string) *MessageResponse {
	resp := &MessageResponse{}
	resp.Body.Message = text
	return resp
}
