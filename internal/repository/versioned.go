package repository

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrVersionConflict is returned when a row changed since it was read
var ErrVersionConflict = errors.New("row was modified concurrently")

// saveVersioned writes every column of row with a compare-and-swap on version.
// On success *version is bumped; on a lost race it is left untouched.
func saveVersioned(db *gorm.DB, row interface{}, id uuid.UUID, version *int) error {
	expected := *version
	*version = expected + 1

	res := db.Model(row).
		Where("id = ? AND version = ?", id, expected).
		Select("*").
		Omit("id", "created_at", clause.Associations).
		Updates(row)
	if res.Error != nil {
		*version = expected
		return res.Error
	}
	if res.RowsAffected == 0 {
		*version = expected
		return ErrVersionConflict
	}
	return nil
}
