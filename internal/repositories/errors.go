package repositories

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when no document or row matches.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique index rejects a write.
	ErrDuplicate = errors.New("duplicate record")
)

// mapMongoError translates driver errors into repository errors.
func mapMongoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	}
	return err
}

// mapGormError translates GORM errors into repository errors.
func mapGormError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}
