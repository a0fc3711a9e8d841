package db

import (
	"context"
	"errors"

	"github.com/mlte-team/mlte-sub000/internal/domain"
	"github.com/mlte-team/mlte-sub000/internal/store"

	"gorm.io/gorm"
)

// CustomListRepository stores the entries of one list.
type CustomListRepository struct {
	db   *gorm.DB
	list domain.CustomListName
}

var _ store.DocumentBackend[domain.CustomListEntry] = (*CustomListRepository)(nil)

func NewCustomListRepository(db *gorm.DB, list domain.CustomListName) *CustomListRepository {
	return &CustomListRepository{db: db, list: list}
}

func (r *CustomListRepository) List(ctx context.Context) ([]string, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var names []string
	err := r.db.WithContext(ctx).Model(&CustomListEntryRow{}).
		Where("list_name = ?", string(r.list)).Order("name").Pluck("name", &names).Error
	if err != nil {
		return nil, mapErr(err, "list %s", r.list)
	}
	return names, nil
}

func (r *CustomListRepository) Get(ctx context.Context, name string) (domain.CustomListEntry, error) {
	if r.db == nil {
		return domain.CustomListEntry{}, errDBUnavailable
	}
	var row CustomListEntryRow
	if err := r.db.WithContext(ctx).Where("list_name = ? AND name = ?", string(r.list), name).First(&row).Error; err != nil {
		return domain.CustomListEntry{}, mapErr(err, "%s entry %q not found", r.list, name)
	}
	return domain.CustomListEntry{Name: row.Name, Description: row.Description, Parent: row.Parent}, nil
}

func (r *CustomListRepository) Put(ctx context.Context, entry domain.CustomListEntry) error {
	if r.db == nil {
		return errDBUnavailable
	}
	row := CustomListEntryRow{List: string(r.list), Name: entry.Name, Description: entry.Description, Parent: entry.Parent}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing CustomListEntryRow
		err := tx.Where("list_name = ? AND name = ?", row.List, row.Name).First(&existing).Error
		switch {
		case err == nil:
			row.ID = existing.ID
			err = tx.Save(&row).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			err = tx.Create(&row).Error
		}
		return mapErr(err, "write %s entry %q", r.list, entry.Name)
	})
}

func (r *CustomListRepository) Delete(ctx context.Context, name string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	res := r.db.WithContext(ctx).Where("list_name = ? AND name = ?", string(r.list), name).Delete(&CustomListEntryRow{})
	if res.Error != nil {
		return mapErr(res.Error, "delete %s entry %q", r.list, name)
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("%s entry %q not found", r.list, name)
	}
	return nil
}
