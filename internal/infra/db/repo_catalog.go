package db

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mlte-team/mlte-sub000/internal/domain"
	"github.com/mlte-team/mlte-sub000/internal/query"
	"github.com/mlte-team/mlte-sub000/internal/store"

	"gorm.io/gorm"
)

type CatalogRepository struct {
	db *gorm.DB
}

var (
	_ store.DocumentBackend[domain.CatalogEntry] = (*CatalogRepository)(nil)
	_ store.Searcher[domain.CatalogEntry]        = (*CatalogRepository)(nil)
)

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) List(ctx context.Context) ([]string, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var ids []string
	if err := r.db.WithContext(ctx).Model(&CatalogEntryRow{}).Order("identifier").Pluck("identifier", &ids).Error; err != nil {
		return nil, mapErr(err, "list catalog entries")
	}
	return ids, nil
}

func (r *CatalogRepository) Get(ctx context.Context, id string) (domain.CatalogEntry, error) {
	if r.db == nil {
		return domain.CatalogEntry{}, errDBUnavailable
	}
	var row CatalogEntryRow
	if err := r.db.WithContext(ctx).Where("identifier = ?", id).First(&row).Error; err != nil {
		return domain.CatalogEntry{}, mapErr(err, "catalog entry %q not found", id)
	}
	return catalogFromRow(row)
}

func (r *CatalogRepository) Put(ctx context.Context, entry domain.CatalogEntry) error {
	if r.db == nil {
		return errDBUnavailable
	}
	tags, err := json.Marshal(entry.Tags)
	if err != nil {
		return domain.Wrap(domain.ErrInternal, err, "encode tags of %q", entry.Header.Identifier)
	}
	row := CatalogEntryRow{
		Identifier:       entry.Header.Identifier,
		Creator:          entry.Header.Creator,
		Created:          entry.Header.Created,
		Updater:          entry.Header.Updater,
		Updated:          entry.Header.Updated,
		Tags:             tags,
		QualityAttribute: entry.QualityAttribute,
		Code:             entry.Code,
		Description:      entry.Description,
		Inputs:           entry.Inputs,
		Output:           entry.Output,
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing CatalogEntryRow
		err := tx.Where("identifier = ?", row.Identifier).First(&existing).Error
		switch {
		case err == nil:
			row.ID = existing.ID
			err = tx.Save(&row).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			err = tx.Create(&row).Error
		}
		return mapErr(err, "write catalog entry %q", row.Identifier)
	})
}

func (r *CatalogRepository) Delete(ctx context.Context, id string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	res := r.db.WithContext(ctx).Where("identifier = ?", id).Delete(&CatalogEntryRow{})
	if res.Error != nil {
		return mapErr(res.Error, "delete catalog entry %q", id)
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("catalog entry %q not found", id)
	}
	return nil
}

// Search pushes identifier lookups into SQL and evaluates the rest in memory.
func (r *CatalogRepository) Search(ctx context.Context, q query.Query) ([]domain.CatalogEntry, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	tx := r.db.WithContext(ctx).Order("identifier")
	if q.Filter != nil {
		if ids, ok := query.Identifiers(q.Filter); ok {
			tx = tx.Where("identifier IN ?", ids)
		}
	}
	var rows []CatalogEntryRow
	if err := tx.Find(&rows).Error; err != nil {
		return nil, mapErr(err, "search catalog entries")
	}
	out := make([]domain.CatalogEntry, 0, len(rows))
	for _, row := range rows {
		entry, err := catalogFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return query.Apply(q, out), nil
}

func catalogFromRow(row CatalogEntryRow) (domain.CatalogEntry, error) {
	tags := []string{}
	if len(row.Tags) > 0 {
		if err := json.Unmarshal(row.Tags, &tags); err != nil {
			return domain.CatalogEntry{}, domain.Wrap(domain.ErrInternal, err, "decode tags of %q", row.Identifier)
		}
	}
	return domain.CatalogEntry{
		Header: domain.CatalogEntryHeader{
			Identifier: row.Identifier,
			Creator:    row.Creator,
			Created:    row.Created,
			Updater:    row.Updater,
			Updated:    row.Updated,
		},
		Tags:             tags,
		QualityAttribute: row.QualityAttribute,
		Code:             row.Code,
		Description:      row.Description,
		Inputs:           row.Inputs,
		Output:           row.Output,
	}, nil
}
