package docstore

import (
	"context"
	"encoding/json"

	"github.com/mlte-team/mlte-sub000/internal/domain"
	"github.com/mlte-team/mlte-sub000/internal/store"
)

// Backend serves every family from one Storage.
type Backend struct {
	uri     store.URI
	storage Storage
}

func New(uri store.URI, storage Storage) *Backend {
	return &Backend{uri: uri, storage: storage}
}

func (b *Backend) URI() store.URI { return b.uri }

func (b *Backend) Storage() Storage { return b.storage }

// Open returns a session sharing the backend's storage; documents need no
// per-session state.
func (b *Backend) Open(context.Context) (store.Session, error) {
	return &session{storage: b.storage}, nil
}

type session struct {
	storage Storage
}

func (s *session) Close() error { return nil }

func (s *session) Artifacts() (store.ArtifactBackend, error) {
	return &artifacts{storage: s.storage}, nil
}

func (s *session) Users() (store.UserBackend, error) {
	return &users{storage: s.storage}, nil
}

func (s *session) Catalog() (store.DocumentBackend[domain.CatalogEntry], error) {
	return newDocuments[domain.CatalogEntry](s.storage, catalogGroup), nil
}

func (s *session) CustomLists() (store.CustomListBackend, error) {
	return &customLists{storage: s.storage}, nil
}

type users struct {
	storage Storage
}

func (u *users) Users() store.DocumentBackend[domain.User] {
	return newDocuments[domain.User](u.storage, usersGroup)
}

func (u *users) Groups() store.DocumentBackend[domain.Group] {
	return newDocuments[domain.Group](u.storage, groupsGroup)
}

func (u *users) Permissions() store.DocumentBackend[domain.Permission] {
	return newDocuments[domain.Permission](u.storage, permissionsGroup)
}

type customLists struct {
	storage Storage
}

func (c *customLists) Entries(list domain.CustomListName) store.DocumentBackend[domain.CustomListEntry] {
	return newDocuments[domain.CustomListEntry](c.storage, customListsGroup, string(list))
}

type artifacts struct {
	storage Storage
}

func modelGroup(modelID string) []string {
	return []string{modelsGroup, modelID}
}

func versionGroup(modelID, versionID string) []string {
	return []string{modelsGroup, modelID, versionsGroup, versionID}
}

func artifactGroup(scope domain.Scope, level domain.ArtifactLevel) []string {
	if level == domain.LevelModel {
		return append(modelGroup(scope.ModelID), artifactsGroup)
	}
	return append(versionGroup(scope.ModelID, scope.VersionID), artifactsGroup)
}

func (a *artifacts) ListModels(ctx context.Context) ([]string, error) {
	return a.storage.ListGroups(ctx, modelsGroup)
}

func (a *artifacts) requireModel(ctx context.Context, modelID string) error {
	ok, err := a.storage.GroupExists(ctx, modelGroup(modelID)...)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NotFound("model %q not found", modelID)
	}
	return nil
}

func (a *artifacts) requireVersion(ctx context.Context, modelID, versionID string) error {
	if err := a.requireModel(ctx, modelID); err != nil {
		return err
	}
	ok, err := a.storage.GroupExists(ctx, versionGroup(modelID, versionID)...)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NotFound("version %q not found in model %q", versionID, modelID)
	}
	return nil
}

func (a *artifacts) CreateModel(ctx context.Context, modelID string) error {
	ok, err := a.storage.GroupExists(ctx, modelGroup(modelID)...)
	if err != nil {
		return err
	}
	if ok {
		return domain.AlreadyExists("model %q already exists", modelID)
	}
	return a.storage.EnsureGroup(ctx, modelGroup(modelID)...)
}

func (a *artifacts) DeleteModel(ctx context.Context, modelID string) error {
	if err := a.requireModel(ctx, modelID); err != nil {
		return err
	}
	return a.storage.DeleteGroup(ctx, modelGroup(modelID)...)
}

func (a *artifacts) ListVersions(ctx context.Context, modelID string) ([]string, error) {
	if err := a.requireModel(ctx, modelID); err != nil {
		return nil, err
	}
	return a.storage.ListGroups(ctx, append(modelGroup(modelID), versionsGroup)...)
}

func (a *artifacts) CreateVersion(ctx context.Context, modelID, versionID string) error {
	if err := a.requireModel(ctx, modelID); err != nil {
		return err
	}
	ok, err := a.storage.GroupExists(ctx, versionGroup(modelID, versionID)...)
	if err != nil {
		return err
	}
	if ok {
		return domain.AlreadyExists("version %q already exists in model %q", versionID, modelID)
	}
	return a.storage.EnsureGroup(ctx, versionGroup(modelID, versionID)...)
}

func (a *artifacts) DeleteVersion(ctx context.Context, modelID, versionID string) error {
	if err := a.requireVersion(ctx, modelID, versionID); err != nil {
		return err
	}
	return a.storage.DeleteGroup(ctx, versionGroup(modelID, versionID)...)
}

func (a *artifacts) requireScope(ctx context.Context, scope domain.Scope, level domain.ArtifactLevel) error {
	if level == domain.LevelModel {
		return a.requireModel(ctx, scope.ModelID)
	}
	return a.requireVersion(ctx, scope.ModelID, scope.VersionID)
}

func (a *artifacts) ListArtifacts(ctx context.Context, scope domain.Scope, level domain.ArtifactLevel) ([]string, error) {
	if err := a.requireScope(ctx, scope, level); err != nil {
		if domain.KindOf(err) == domain.ErrNotFound {
			return []string{}, nil
		}
		return nil, err
	}
	return a.storage.List(ctx, artifactGroup(scope, level)...)
}

func (a *artifacts) GetArtifact(ctx context.Context, scope domain.Scope, level domain.ArtifactLevel, id string) (domain.Artifact, error) {
	data, err := a.storage.Read(ctx, append(artifactGroup(scope, level), id)...)
	if err != nil {
		return domain.Artifact{}, err
	}
	return domain.DecodeArtifact(data)
}

func (a *artifacts) PutArtifact(ctx context.Context, scope domain.Scope, artifact domain.Artifact) error {
	level := artifact.Header.Level
	if err := a.requireScope(ctx, scope, level); err != nil {
		return err
	}
	data, err := json.Marshal(artifact)
	if err != nil {
		return domain.Wrap(domain.ErrInternal, err, "encode artifact %q", artifact.Header.Identifier)
	}
	group := artifactGroup(scope, level)
	if err := a.storage.EnsureGroup(ctx, group...); err != nil {
		return err
	}
	return a.storage.Write(ctx, data, append(group, artifact.Header.Identifier)...)
}

func (a *artifacts) DeleteArtifact(ctx context.Context, scope domain.Scope, level domain.ArtifactLevel, id string) error {
	return a.storage.Delete(ctx, append(artifactGroup(scope, level), id)...)
}
