package db

import (
	"errors"

	"github.com/mlte-team/mlte-sub000/internal/domain"

	"gorm.io/gorm"
)

var errDBUnavailable = errors.New("db unavailable")

// mapErr turns gorm errors into domain kinds.
func mapErr(err error, format string, args ...any) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.NotFound(format, args...)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return domain.AlreadyExists(format, args...)
	}
	return domain.Wrap(domain.ErrInternal, err, format, args...)
}

// enumID resolves the primary key of an enumeration row by name.
func enumID[R any](tx *gorm.DB, name string) (uint, error) {
	var row R
	var id uint
	err := tx.Model(&row).Where("name = ?", name).Select("id").Scan(&id).Error
	if err != nil {
		return 0, mapErr(err, "lookup %T %q", row, name)
	}
	if id == 0 {
		return 0, domain.BadRequest("unknown %T value %q", row, name)
	}
	return id, nil
}

func scopeKey(scope domain.Scope, level domain.ArtifactLevel) string {
	if level == domain.LevelModel {
		return scope.ModelID
	}
	return scope.ModelID + "/" + scope.VersionID
}
