package database

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	PreferenceDub = "dub"
	PreferenceSub = "sub"
)

// ErrInvalidPreference is returned for values other than dub or sub
var ErrInvalidPreference = errors.New("invalid audio preference: must be 'dub' or 'sub'")

// GetAudioPreference returns the stored preference for an anime id, or ""
// when none is stored
func GetAudioPreference(db *gorm.DB, anilistID int) (string, error) {
	var pref AudioPreference
	err := db.Where("anilist_id = ?", anilistID).First(&pref).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to load audio preference: %w", err)
	}
	return pref.Preference, nil
}

// SaveAudioPreference inserts or replaces the preference for an anime id
func SaveAudioPreference(db *gorm.DB, anilistID int, preference string) error {
	if preference != PreferenceDub && preference != PreferenceSub {
		return fmt.Errorf("%w (got %q)", ErrInvalidPreference, preference)
	}

	pref := AudioPreference{
		AniListID:  anilistID,
		Preference: preference,
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "anilist_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"preference", "updated_at"}),
	}).Create(&pref).Error
}

// ClearAudioPreference removes the preference for an anime id. Missing rows
// are not an error.
func ClearAudioPreference(db *gorm.DB, anilistID int) error {
	return db.Where("anilist_id = ?", anilistID).Delete(&AudioPreference{}).Error
}

// PreferenceFor converts a dubbed flag to its stored value
func PreferenceFor(dubbed bool) string {
	if dubbed {
		return PreferenceDub
	}
	return PreferenceSub
}
