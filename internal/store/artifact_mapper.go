package store

import (
	"context"
	"sort"

	"github.com/mlte-team/mlte-sub000/internal/domain"
	"github.com/mlte-team/mlte-sub000/internal/query"
)

// ArtifactMapper reads and writes artifacts under a (model, version) scope.
// Reads in a version scope fall back to model-level artifacts.
type ArtifactMapper struct {
	s *ArtifactSession
}

func (m *ArtifactMapper) Create(ctx context.Context, scope domain.Scope, artifact domain.Artifact, opts WriteOptions) (domain.Artifact, error) {
	return m.write(ctx, scope, artifact, opts, false)
}

// Edit replaces an existing artifact at the same level.
func (m *ArtifactMapper) Edit(ctx context.Context, scope domain.Scope, artifact domain.Artifact, opts WriteOptions) (domain.Artifact, error) {
	opts.Force = true
	return m.write(ctx, scope, artifact, opts, true)
}

func (m *ArtifactMapper) write(ctx context.Context, scope domain.Scope, artifact domain.Artifact, opts WriteOptions, mustExist bool) (domain.Artifact, error) {
	if err := scope.Validate(); err != nil {
		return domain.Artifact{}, err
	}
	if err := artifact.Normalize(m.s.store.Now()); err != nil {
		return domain.Artifact{}, err
	}
	level := artifact.Header.Level
	target := levelScope(scope, level)
	if level == domain.LevelVersion && target.VersionID == "" {
		return domain.Artifact{}, domain.BadRequest("version-level artifact %q needs a version", artifact.Header.Identifier)
	}
	missing, err := m.checkParents(ctx, target, level, opts.Parents)
	if err != nil {
		return domain.Artifact{}, err
	}

	if hook, ok := artifact.Body.(domain.PreSaveHook); ok {
		if err := m.runPreSave(ctx, scope, hook); err != nil {
			m.s.store.opts.rejected(ctx, "artifact", artifact.Header.Identifier, err)
			return domain.Artifact{}, err
		}
	}
	if err := m.s.store.Validators.Validate(ctx, artifact); err != nil {
		m.s.store.opts.rejected(ctx, "artifact", artifact.Header.Identifier, err)
		return domain.Artifact{}, err
	}

	_, err = m.s.backend.GetArtifact(ctx, target, level, artifact.Header.Identifier)
	switch {
	case err == nil && !opts.Force:
		return domain.Artifact{}, domain.AlreadyExists("artifact %q already exists in %s", artifact.Header.Identifier, target)
	case err != nil && !isNotFound(err):
		return domain.Artifact{}, err
	case err != nil && mustExist:
		return domain.Artifact{}, domain.NotFound("artifact %q not found in %s", artifact.Header.Identifier, target)
	}

	if err := m.createParents(ctx, target, missing); err != nil {
		return domain.Artifact{}, err
	}
	ctx, done := m.s.observe(ctx, "artifact.write")
	err = m.s.backend.PutArtifact(ctx, target, artifact)
	done(err)
	if err != nil {
		return domain.Artifact{}, domain.Wrap(domain.ErrInternal, err, "write artifact %q", artifact.Header.Identifier)
	}
	return artifact, nil
}

type missingParents struct {
	model   bool
	version bool
}

// checkParents reports which parents are absent, failing unless parents may
// be created.
func (m *ArtifactMapper) checkParents(ctx context.Context, scope domain.Scope, level domain.ArtifactLevel, parents bool) (missingParents, error) {
	var missing missingParents
	if _, err := m.s.Models().Read(ctx, scope.ModelID); err != nil {
		if !isNotFound(err) || !parents {
			return missing, err
		}
		missing.model = true
	}
	if level != domain.LevelVersion {
		return missing, nil
	}
	if missing.model {
		missing.version = true
		return missing, nil
	}
	if _, err := m.s.Versions().Read(ctx, scope.ModelID, scope.VersionID); err != nil {
		if !isNotFound(err) || !parents {
			return missing, err
		}
		missing.version = true
	}
	return missing, nil
}

func (m *ArtifactMapper) createParents(ctx context.Context, scope domain.Scope, missing missingParents) error {
	if missing.model {
		if _, err := m.s.Models().Create(ctx, domain.Model{Identifier: scope.ModelID}); err != nil && domain.KindOf(err) != domain.ErrAlreadyExists {
			return err
		}
	}
	if missing.version {
		if _, err := m.s.Versions().Create(ctx, scope.ModelID, domain.Version{Identifier: scope.VersionID}); err != nil && domain.KindOf(err) != domain.ErrAlreadyExists {
			return err
		}
	}
	return nil
}

// runPreSave hands the hook a reader on a fresh session of the same store.
func (m *ArtifactMapper) runPreSave(ctx context.Context, scope domain.Scope, hook domain.PreSaveHook) error {
	return With(ctx, m.s.store.Session, func(fresh *ArtifactSession) error {
		return hook.PreSave(ctx, scope, fresh.Artifacts())
	})
}

func (m *ArtifactMapper) Read(ctx context.Context, scope domain.Scope, id string) (domain.Artifact, error) {
	if err := scope.Validate(); err != nil {
		return domain.Artifact{}, err
	}
	for _, level := range scopeLevels(scope) {
		artifact, err := m.s.backend.GetArtifact(ctx, levelScope(scope, level), level, id)
		if err == nil {
			return m.postLoad(ctx, scope, artifact)
		}
		if !isNotFound(err) {
			return domain.Artifact{}, err
		}
	}
	return domain.Artifact{}, domain.NotFound("artifact %q not found in %s", id, scope)
}

func (m *ArtifactMapper) postLoad(ctx context.Context, scope domain.Scope, artifact domain.Artifact) (domain.Artifact, error) {
	hook, ok := artifact.Body.(domain.PostLoadHook)
	if !ok {
		return artifact, nil
	}
	if err := hook.PostLoad(ctx, scope, m); err != nil {
		return domain.Artifact{}, err
	}
	return artifact, nil
}

func (m *ArtifactMapper) Delete(ctx context.Context, scope domain.Scope, id string) (domain.Artifact, error) {
	if err := scope.Validate(); err != nil {
		return domain.Artifact{}, err
	}
	for _, level := range scopeLevels(scope) {
		target := levelScope(scope, level)
		artifact, err := m.s.backend.GetArtifact(ctx, target, level, id)
		if isNotFound(err) {
			continue
		}
		if err != nil {
			return domain.Artifact{}, err
		}
		ctx, done := m.s.observe(ctx, "artifact.delete")
		err = m.s.backend.DeleteArtifact(ctx, target, level, id)
		done(err)
		if err != nil {
			return domain.Artifact{}, err
		}
		return artifact, nil
	}
	return domain.Artifact{}, domain.NotFound("artifact %q not found in %s", id, scope)
}

// List returns the ids Read resolves in scope.
func (m *ArtifactMapper) List(ctx context.Context, scope domain.Scope) ([]string, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if _, err := m.s.Models().Read(ctx, scope.ModelID); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, level := range scopeLevels(scope) {
		ids, err := m.s.backend.ListArtifacts(ctx, levelScope(scope, level), level)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *ArtifactMapper) ListDetails(ctx context.Context, scope domain.Scope, limit, offset int) ([]domain.Artifact, error) {
	return ListDetails(ctx, m.lister(scope), m.reader(scope), limit, offset)
}

func (m *ArtifactMapper) Search(ctx context.Context, scope domain.Scope, q query.Query) ([]domain.Artifact, error) {
	searcher, ok := m.s.backend.(ArtifactSearcher)
	if !ok {
		return Search(ctx, m.lister(scope), m.reader(scope), q)
	}
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if _, err := m.s.Models().Read(ctx, scope.ModelID); err != nil {
		return nil, err
	}
	shadowed := make(map[string]struct{})
	out := make([]domain.Artifact, 0)
	for _, level := range scopeLevels(scope) {
		target := levelScope(scope, level)
		found, err := searcher.SearchArtifacts(ctx, target, level, q)
		if err != nil {
			return nil, err
		}
		for _, a := range found {
			if _, hidden := shadowed[a.Header.Identifier]; hidden {
				continue
			}
			loaded, err := m.postLoad(ctx, scope, a)
			if err != nil {
				return nil, err
			}
			out = append(out, loaded)
		}
		ids, err := m.s.backend.ListArtifacts(ctx, target, level)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			shadowed[id] = struct{}{}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Header.Identifier < out[j].Header.Identifier })
	return out, nil
}

// ReadArtifact and ListArtifactsOfType make the mapper a hook reader.
func (m *ArtifactMapper) ReadArtifact(ctx context.Context, scope domain.Scope, id string) (domain.Artifact, error) {
	return m.Read(ctx, scope, id)
}

func (m *ArtifactMapper) ListArtifactsOfType(ctx context.Context, scope domain.Scope, t domain.ArtifactType) ([]domain.Artifact, error) {
	artifacts, err := m.Search(ctx, scope, query.New(query.TypeFilter{ItemType: string(t)}))
	if isNotFound(err) {
		return nil, nil
	}
	return artifacts, err
}

var _ domain.ArtifactReader = (*ArtifactMapper)(nil)

func (m *ArtifactMapper) lister(scope domain.Scope) func(context.Context) ([]string, error) {
	return func(ctx context.Context) ([]string, error) { return m.List(ctx, scope) }
}

func (m *ArtifactMapper) reader(scope domain.Scope) func(context.Context, string) (domain.Artifact, error) {
	return func(ctx context.Context, id string) (domain.Artifact, error) { return m.Read(ctx, scope, id) }
}

func scopeLevels(scope domain.Scope) []domain.ArtifactLevel {
	if scope.VersionID == "" {
		return []domain.ArtifactLevel{domain.LevelModel}
	}
	return []domain.ArtifactLevel{domain.LevelVersion, domain.LevelModel}
}

func levelScope(scope domain.Scope, level domain.ArtifactLevel) domain.Scope {
	if level == domain.LevelModel {
		return scope.ModelScope()
	}
	return scope
}
