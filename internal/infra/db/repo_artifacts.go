package db

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mlte-team/mlte-sub000/internal/domain"
	"github.com/mlte-team/mlte-sub000/internal/query"
	"github.com/mlte-team/mlte-sub000/internal/store"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ArtifactRepository struct {
	db *gorm.DB
}

var (
	_ store.ArtifactBackend  = (*ArtifactRepository)(nil)
	_ store.ArtifactSearcher = (*ArtifactRepository)(nil)
)

func NewArtifactRepository(db *gorm.DB) *ArtifactRepository {
	return &ArtifactRepository{db: db}
}

func (r *ArtifactRepository) ListModels(ctx context.Context) ([]string, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var ids []string
	if err := r.db.WithContext(ctx).Model(&ModelRow{}).Order("identifier").Pluck("identifier", &ids).Error; err != nil {
		return nil, mapErr(err, "list models")
	}
	return ids, nil
}

func findModel(tx *gorm.DB, modelID string) (ModelRow, error) {
	var row ModelRow
	if err := tx.Where("identifier = ?", modelID).First(&row).Error; err != nil {
		return ModelRow{}, mapErr(err, "model %q not found", modelID)
	}
	return row, nil
}

func findVersion(tx *gorm.DB, modelID, versionID string) (ModelRow, VersionRow, error) {
	model, err := findModel(tx, modelID)
	if err != nil {
		return ModelRow{}, VersionRow{}, err
	}
	var row VersionRow
	if err := tx.Where("model_id = ? AND identifier = ?", model.ID, versionID).First(&row).Error; err != nil {
		return ModelRow{}, VersionRow{}, mapErr(err, "version %q not found in model %q", versionID, modelID)
	}
	return model, row, nil
}

func (r *ArtifactRepository) CreateModel(ctx context.Context, modelID string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findModel(tx, modelID); err == nil {
			return domain.AlreadyExists("model %q already exists", modelID)
		} else if domain.KindOf(err) != domain.ErrNotFound {
			return err
		}
		return mapErr(tx.Create(&ModelRow{Identifier: modelID}).Error, "model %q already exists", modelID)
	})
}

// DeleteModel removes the model's artifacts and versions explicitly so the
// cascade holds even where foreign keys are not enforced.
func (r *ArtifactRepository) DeleteModel(ctx context.Context, modelID string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model, err := findModel(tx, modelID)
		if err != nil {
			return err
		}
		if err := deleteArtifacts(tx, tx.Where("model_id = ?", model.ID)); err != nil {
			return err
		}
		if err := tx.Where("model_id = ?", model.ID).Delete(&VersionRow{}).Error; err != nil {
			return mapErr(err, "delete versions of %q", modelID)
		}
		return mapErr(tx.Delete(&model).Error, "delete model %q", modelID)
	})
}

func (r *ArtifactRepository) ListVersions(ctx context.Context, modelID string) ([]string, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	tx := r.db.WithContext(ctx)
	model, err := findModel(tx, modelID)
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := tx.Model(&VersionRow{}).Where("model_id = ?", model.ID).Order("identifier").Pluck("identifier", &ids).Error; err != nil {
		return nil, mapErr(err, "list versions of %q", modelID)
	}
	return ids, nil
}

func (r *ArtifactRepository) CreateVersion(ctx context.Context, modelID, versionID string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model, err := findModel(tx, modelID)
		if err != nil {
			return err
		}
		if _, _, err := findVersion(tx, modelID, versionID); err == nil {
			return domain.AlreadyExists("version %q already exists in model %q", versionID, modelID)
		}
		row := VersionRow{ModelID: model.ID, Identifier: versionID}
		return mapErr(tx.Create(&row).Error, "version %q already exists in model %q", versionID, modelID)
	})
}

func (r *ArtifactRepository) DeleteVersion(ctx context.Context, modelID, versionID string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, version, err := findVersion(tx, modelID, versionID)
		if err != nil {
			return err
		}
		if err := deleteArtifacts(tx, tx.Where("version_id = ?", version.ID)); err != nil {
			return err
		}
		return mapErr(tx.Delete(&version).Error, "delete version %q", versionID)
	})
}

// deleteArtifacts removes the matching rows with their classification links.
func deleteArtifacts(tx *gorm.DB, scoped *gorm.DB) error {
	var rows []ArtifactRow
	if err := scoped.Find(&rows).Error; err != nil {
		return mapErr(err, "find artifacts")
	}
	for i := range rows {
		if err := tx.Select("Classifications").Delete(&rows[i]).Error; err != nil {
			return mapErr(err, "delete artifact %q", rows[i].Identifier)
		}
	}
	return nil
}

func (r *ArtifactRepository) ListArtifacts(ctx context.Context, scope domain.Scope, level domain.ArtifactLevel) ([]string, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var ids []string
	err := r.db.WithContext(ctx).Model(&ArtifactRow{}).
		Where("scope_key = ? AND level = ?", scopeKey(scope, level), string(level)).
		Order("identifier").Pluck("identifier", &ids).Error
	if err != nil {
		return nil, mapErr(err, "list artifacts in %s", scope)
	}
	return ids, nil
}

func (r *ArtifactRepository) GetArtifact(ctx context.Context, scope domain.Scope, level domain.ArtifactLevel, id string) (domain.Artifact, error) {
	if r.db == nil {
		return domain.Artifact{}, errDBUnavailable
	}
	var row ArtifactRow
	err := r.db.WithContext(ctx).Preload("Type").
		Where("identifier = ? AND scope_key = ? AND level = ?", id, scopeKey(scope, level), string(level)).
		First(&row).Error
	if err != nil {
		return domain.Artifact{}, mapErr(err, "artifact %q not found in %s", id, scope)
	}
	return rowToArtifact(row)
}

func (r *ArtifactRepository) PutArtifact(ctx context.Context, scope domain.Scope, artifact domain.Artifact) error {
	if r.db == nil {
		return errDBUnavailable
	}
	level := artifact.Header.Level
	body, err := json.Marshal(artifact.Body)
	if err != nil {
		return domain.Wrap(domain.ErrInternal, err, "encode artifact %q", artifact.Header.Identifier)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := ArtifactRow{
			Identifier: artifact.Header.Identifier,
			ScopeKey:   scopeKey(scope, level),
			Level:      string(level),
			Timestamp:  artifact.Header.Timestamp,
			Creator:    artifact.Header.Creator,
			Body:       body,
		}
		if level == domain.LevelVersion {
			model, version, err := findVersion(tx, scope.ModelID, scope.VersionID)
			if err != nil {
				return err
			}
			row.ModelID = model.ID
			row.VersionID = &version.ID
		} else {
			model, err := findModel(tx, scope.ModelID)
			if err != nil {
				return err
			}
			row.ModelID = model.ID
		}
		typeID, err := enumID[ArtifactTypeRow](tx, string(artifact.Header.Type))
		if err != nil {
			return err
		}
		row.TypeID = typeID

		var classifications []DataClassificationRow
		if card, ok := artifact.Body.(*domain.NegotiationCard); ok {
			if card.System.ProblemType != "" {
				ptID, err := enumID[ProblemTypeRow](tx, string(card.System.ProblemType))
				if err != nil {
					return err
				}
				row.ProblemTypeID = &ptID
			}
			classifications, err = cardClassifications(tx, card)
			if err != nil {
				return err
			}
		}

		var existing ArtifactRow
		err = tx.Where("identifier = ? AND scope_key = ? AND level = ?", row.Identifier, row.ScopeKey, row.Level).First(&existing).Error
		switch {
		case err == nil:
			row.ID = existing.ID
			if err := tx.Omit(clause.Associations).Save(&row).Error; err != nil {
				return mapErr(err, "update artifact %q", row.Identifier)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Omit(clause.Associations).Create(&row).Error; err != nil {
				return mapErr(err, "artifact %q already exists in %s", row.Identifier, scope)
			}
		default:
			return mapErr(err, "find artifact %q", row.Identifier)
		}
		if err := tx.Model(&row).Association("Classifications").Replace(classifications); err != nil {
			return mapErr(err, "link classifications of %q", row.Identifier)
		}
		return nil
	})
}

func cardClassifications(tx *gorm.DB, card *domain.NegotiationCard) ([]DataClassificationRow, error) {
	seen := make(map[domain.DataClassification]struct{})
	out := make([]DataClassificationRow, 0)
	for _, d := range card.Data {
		if d.Classification == "" {
			continue
		}
		if _, dup := seen[d.Classification]; dup {
			continue
		}
		seen[d.Classification] = struct{}{}
		id, err := enumID[DataClassificationRow](tx, string(d.Classification))
		if err != nil {
			return nil, err
		}
		out = append(out, DataClassificationRow{EnumRow{ID: id, Name: string(d.Classification)}})
	}
	return out, nil
}

func (r *ArtifactRepository) DeleteArtifact(ctx context.Context, scope domain.Scope, level domain.ArtifactLevel, id string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row ArtifactRow
		err := tx.Where("identifier = ? AND scope_key = ? AND level = ?", id, scopeKey(scope, level), string(level)).First(&row).Error
		if err != nil {
			return mapErr(err, "artifact %q not found in %s", id, scope)
		}
		return mapErr(tx.Select("Classifications").Delete(&row).Error, "delete artifact %q", id)
	})
}

// SearchArtifacts pushes identifier and type constraints into SQL, then
// applies the full query to what comes back.
func (r *ArtifactRepository) SearchArtifacts(ctx context.Context, scope domain.Scope, level domain.ArtifactLevel, q query.Query) ([]domain.Artifact, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	tx := r.db.WithContext(ctx).Model(&ArtifactRow{}).Preload("Type").
		Where("artifacts.scope_key = ? AND artifacts.level = ?", scopeKey(scope, level), string(level))
	if q.Filter != nil {
		if ids, ok := query.Identifiers(q.Filter); ok {
			tx = tx.Where("artifacts.identifier IN ?", ids)
		}
		if t, ok := query.Types(q.Filter); ok {
			tx = tx.Joins("JOIN artifact_types ON artifact_types.id = artifacts.type_id").
				Where("artifact_types.name = ?", t)
		}
	}
	var rows []ArtifactRow
	if err := tx.Order("artifacts.identifier").Find(&rows).Error; err != nil {
		return nil, mapErr(err, "search artifacts in %s", scope)
	}
	out := make([]domain.Artifact, 0, len(rows))
	for _, row := range rows {
		a, err := rowToArtifact(row)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return query.Apply(q, out), nil
}

func rowToArtifact(row ArtifactRow) (domain.Artifact, error) {
	wire := struct {
		Header domain.ArtifactHeader `json:"header"`
		Body   json.RawMessage       `json:"body"`
	}{
		Header: domain.ArtifactHeader{
			Identifier: row.Identifier,
			Type:       domain.ArtifactType(row.Type.Name),
			Timestamp:  row.Timestamp,
			Creator:    row.Creator,
			Level:      domain.ArtifactLevel(row.Level),
		},
		Body: json.RawMessage(row.Body),
	}
	data, err := json.Marshal(wire)
	if err != nil {
		return domain.Artifact{}, domain.Wrap(domain.ErrInternal, err, "encode artifact %q", row.Identifier)
	}
	return domain.DecodeArtifact(data)
}
