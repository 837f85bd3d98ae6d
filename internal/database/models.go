package database

import (
	"time"

	"gorm.io/gorm"
)

// AudioPreference stores the dub/sub choice for one anime title
type AudioPreference struct {
	ID         uint      `gorm:"primaryKey"`
	AniListID  int       `gorm:"column:anilist_id;not null;uniqueIndex"`
	Preference string    `gorm:"not null"` // "dub" or "sub"
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

// TableName overrides the table name
func (AudioPreference) TableName() string {
	return "audio_preferences"
}

// Migrate creates or updates the schema
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&AudioPreference{})
}
