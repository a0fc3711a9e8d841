package store

import (
	"context"
	"sort"
	"time"

	"github.com/mlte-team/mlte-sub000/internal/domain"
	"github.com/mlte-team/mlte-sub000/internal/query"
)

// WriteOptions control artifact writes. Force replaces an existing artifact;
// Parents creates a missing model and version.
type WriteOptions struct {
	Force   bool `json:"force"`
	Parents bool `json:"parents"`
}

// ArtifactSearcher is implemented by backends that can narrow an artifact
// search natively at one level.
type ArtifactSearcher interface {
	SearchArtifacts(ctx context.Context, scope domain.Scope, level domain.ArtifactLevel, q query.Query) ([]domain.Artifact, error)
}

type ArtifactStore struct {
	backend    Backend
	opts       Options
	Validators *CompositeValidator[domain.Artifact]
	Now        func() time.Time
}

func NewArtifactStore(backend Backend, opts Options) *ArtifactStore {
	return &ArtifactStore{
		backend:    backend,
		opts:       opts,
		Validators: NewCompositeValidator[domain.Artifact](),
		Now:        time.Now,
	}
}

func (s *ArtifactStore) URI() URI { return s.backend.URI() }

func (s *ArtifactStore) Session(ctx context.Context) (*ArtifactSession, error) {
	sess, err := s.backend.Open(ctx)
	if err != nil {
		return nil, err
	}
	primitives, err := sess.Artifacts()
	if err != nil {
		_ = sess.Close()
		return nil, err
	}
	return &ArtifactSession{store: s, session: sess, backend: primitives}, nil
}

// ArtifactSession groups the model, version and artifact mappers of one
// backend session.
type ArtifactSession struct {
	store   *ArtifactStore
	session Session
	backend ArtifactBackend
}

func (s *ArtifactSession) Close() error { return s.session.Close() }

func (s *ArtifactSession) Models() *ModelMapper { return &ModelMapper{s: s} }

func (s *ArtifactSession) Versions() *VersionMapper { return &VersionMapper{s: s} }

func (s *ArtifactSession) Artifacts() *ArtifactMapper { return &ArtifactMapper{s: s} }

func (s *ArtifactSession) observe(ctx context.Context, op string) (context.Context, func(error)) {
	return s.store.opts.observer().Observe(ctx, "artifact", op)
}

// ModelMapper manages models. Deleting a model removes its versions and
// artifacts.
type ModelMapper struct {
	s *ArtifactSession
}

var _ Mapper[domain.Model] = (*ModelMapper)(nil)

func (m *ModelMapper) Create(ctx context.Context, model domain.Model) (domain.Model, error) {
	if err := domain.ValidIdentifier("model", model.Identifier); err != nil {
		return domain.Model{}, err
	}
	ctx, done := m.s.observe(ctx, "model.create")
	err := m.s.backend.CreateModel(ctx, model.Identifier)
	done(err)
	if err != nil {
		return domain.Model{}, err
	}
	return m.Read(ctx, model.Identifier)
}

func (m *ModelMapper) Read(ctx context.Context, id string) (domain.Model, error) {
	versions, err := m.s.backend.ListVersions(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return domain.Model{}, domain.NotFound("model %q not found", id)
		}
		return domain.Model{}, err
	}
	sort.Strings(versions)
	return domain.Model{Identifier: id, Versions: versions}, nil
}

// Edit has nothing to change on a model; it only confirms existence.
func (m *ModelMapper) Edit(ctx context.Context, model domain.Model) (domain.Model, error) {
	return m.Read(ctx, model.Identifier)
}

func (m *ModelMapper) Delete(ctx context.Context, id string) (domain.Model, error) {
	model, err := m.Read(ctx, id)
	if err != nil {
		return domain.Model{}, err
	}
	ctx, done := m.s.observe(ctx, "model.delete")
	err = m.s.backend.DeleteModel(ctx, id)
	done(err)
	if err != nil {
		return domain.Model{}, err
	}
	return model, nil
}

func (m *ModelMapper) List(ctx context.Context) ([]string, error) {
	ids, err := m.s.backend.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *ModelMapper) ListDetails(ctx context.Context, limit, offset int) ([]domain.Model, error) {
	return ListDetails(ctx, m.List, m.Read, limit, offset)
}

func (m *ModelMapper) Search(ctx context.Context, q query.Query) ([]domain.Model, error) {
	return Search(ctx, m.List, m.Read, q)
}

// VersionMapper manages the versions of one model at a time.
type VersionMapper struct {
	s *ArtifactSession
}

func (v *VersionMapper) Create(ctx context.Context, modelID string, version domain.Version) (domain.Version, error) {
	if err := domain.ValidIdentifier("version", version.Identifier); err != nil {
		return domain.Version{}, err
	}
	ctx, done := v.s.observe(ctx, "version.create")
	err := v.s.backend.CreateVersion(ctx, modelID, version.Identifier)
	done(err)
	if err != nil {
		return domain.Version{}, err
	}
	return version, nil
}

func (v *VersionMapper) Read(ctx context.Context, modelID, id string) (domain.Version, error) {
	ids, err := v.List(ctx, modelID)
	if err != nil {
		return domain.Version{}, err
	}
	for _, existing := range ids {
		if existing == id {
			return domain.Version{Identifier: id}, nil
		}
	}
	return domain.Version{}, domain.NotFound("version %q not found in model %q", id, modelID)
}

func (v *VersionMapper) Delete(ctx context.Context, modelID, id string) (domain.Version, error) {
	version, err := v.Read(ctx, modelID, id)
	if err != nil {
		return domain.Version{}, err
	}
	ctx, done := v.s.observe(ctx, "version.delete")
	err = v.s.backend.DeleteVersion(ctx, modelID, id)
	done(err)
	if err != nil {
		return domain.Version{}, err
	}
	return version, nil
}

func (v *VersionMapper) List(ctx context.Context, modelID string) ([]string, error) {
	ids, err := v.s.backend.ListVersions(ctx, modelID)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.NotFound("model %q not found", modelID)
		}
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

func (v *VersionMapper) ListDetails(ctx context.Context, modelID string, limit, offset int) ([]domain.Version, error) {
	read := func(ctx context.Context, id string) (domain.Version, error) { return v.Read(ctx, modelID, id) }
	list := func(ctx context.Context) ([]string, error) { return v.List(ctx, modelID) }
	return ListDetails(ctx, list, read, limit, offset)
}

func (v *VersionMapper) Search(ctx context.Context, modelID string, q query.Query) ([]domain.Version, error) {
	read := func(ctx context.Context, id string) (domain.Version, error) { return v.Read(ctx, modelID, id) }
	list := func(ctx context.Context) ([]string, error) { return v.List(ctx, modelID) }
	return Search(ctx, list, read, q)
}
