package domain

import (
	"time"

	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether a task in this status is never reprocessed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

const (
	TypeTextToImage = "text-to-image"
	TypeBackground  = "background"
	TypeUpscale     = "upscale"
	TypeModel       = "model"
)

type Task struct {
	ID            string            `gorm:"primaryKey;column:id" json:"id"`
	UserID        string            `gorm:"not null;index" json:"user_id"`
	Prompt        string            `gorm:"not null" json:"prompt"`
	InputImageURL string            `gorm:"column:input_image_url" json:"input_image_url,omitempty"`
	Type          string            `gorm:"not null" json:"type"`
	Settings      datatypes.JSONMap `gorm:"not null;default:'{}'" json:"settings,omitempty"`
	Status        Status            `gorm:"not null;index:idx_tasks_status_created,priority:1" json:"status"`
	ResultURL     string            `gorm:"column:result_url" json:"result_url,omitempty"`
	Error         string            `json:"error,omitempty"`
	CreatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_tasks_status_created,priority:2" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Task) TableName() string { return "generation_tasks" }

// GenerationSettings is the typed view of the settings payload. The core treats
// unknown keys as opaque; these are the ones pricing and prompting understand.
type GenerationSettings struct {
	Resolution  string
	AspectRatio string
	SceneType   string
	ArtStyle    string
	BatchMode   bool
	BatchSize   int
}

// SettingsFromMap extracts the typed settings, defaulting resolution and
// aspect ratio the way the request path does.
func SettingsFromMap(raw map[string]any) GenerationSettings {
	settings := GenerationSettings{
		Resolution:  stringValue(raw, "resolution", "1K"),
		AspectRatio: stringValue(raw, "aspectRatio", "16:9"),
		SceneType:   stringValue(raw, "sceneType", ""),
		ArtStyle:    stringValue(raw, "artStyle", ""),
	}
	if v, ok := raw["batchMode"].(bool); ok {
		settings.BatchMode = v
	}
	switch v := raw["batchSize"].(type) {
	case int:
		settings.BatchSize = v
	case float64:
		settings.BatchSize = int(v)
	}
	return settings
}

func stringValue(raw map[string]any, key, def string) string {
	if raw == nil {
		return def
	}
	if v, ok := raw[key].(string); ok && v != "" {
		return v
	}
	return def
}
