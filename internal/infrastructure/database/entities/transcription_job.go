package entities

import "time"

// TranscriptionJob links an artifact to an external engine job.
type TranscriptionJob struct {
	ID             string    `gorm:"type:varchar(160);primaryKey"`
	ArtifactID     string    `gorm:"type:varchar(40);not null;index"`
	Status         string    `gorm:"type:varchar(16);not null"`
	TranscriptText string    `gorm:"type:text"`
	Attempts       int       `gorm:"not null;default:0"`
	Abandoned      bool      `gorm:"not null;default:false"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

func (TranscriptionJob) TableName() string {
	return "transcription_job"
}
