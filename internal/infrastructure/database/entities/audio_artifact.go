package entities

import "time"

// AudioArtifact represents the persisted audio recording metadata.
type AudioArtifact struct {
	ID        string    `gorm:"type:varchar(40);primaryKey"`
	OwnerID   string    `gorm:"type:varchar(64);not null;index"`
	CaseID    string    `gorm:"type:varchar(64);not null;index"`
	ObjectKey string    `gorm:"type:varchar(512);uniqueIndex;not null"`
	Title     string    `gorm:"type:varchar(255)"`
	Status    string    `gorm:"type:varchar(32);not null;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (AudioArtifact) TableName() string {
	return "audio_artifact"
}
