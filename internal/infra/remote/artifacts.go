package remote

import (
	"context"
	"net/http"

	"github.com/mlte-team/mlte-sub000/internal/domain"
	"github.com/mlte-team/mlte-sub000/internal/store"
)

type artifacts struct {
	c *Client
}

var _ store.ArtifactBackend = (*artifacts)(nil)

type identifierBody struct {
	Identifier string `json:"identifier"`
}

// WriteRequest is the body of artifact create and edit calls.
type WriteRequest struct {
	Artifact domain.Artifact `json:"artifact"`
	Force    bool            `json:"force"`
	Parents  bool            `json:"parents"`
}

func (a *artifacts) ListModels(ctx context.Context) ([]string, error) {
	var ids []string
	err := a.c.do(ctx, http.MethodGet, "/model", nil, &ids)
	return ids, err
}

func (a *artifacts) CreateModel(ctx context.Context, modelID string) error {
	return a.c.do(ctx, http.MethodPost, "/model", identifierBody{Identifier: modelID}, nil)
}

func (a *artifacts) DeleteModel(ctx context.Context, modelID string) error {
	return a.c.do(ctx, http.MethodDelete, escape("model", modelID), nil, nil)
}

func (a *artifacts) ListVersions(ctx context.Context, modelID string) ([]string, error) {
	var ids []string
	err := a.c.do(ctx, http.MethodGet, escape("model", modelID, "version"), nil, &ids)
	return ids, err
}

func (a *artifacts) CreateVersion(ctx context.Context, modelID, versionID string) error {
	return a.c.do(ctx, http.MethodPost, escape("model", modelID, "version"), identifierBody{Identifier: versionID}, nil)
}

func (a *artifacts) DeleteVersion(ctx context.Context, modelID, versionID string) error {
	return a.c.do(ctx, http.MethodDelete, escape("model", modelID, "version", versionID), nil, nil)
}

func artifactBase(scope domain.Scope, level domain.ArtifactLevel) string {
	if level == domain.LevelModel {
		return escape("model", scope.ModelID, "artifact")
	}
	return escape("model", scope.ModelID, "version", scope.VersionID, "artifact")
}

func (a *artifacts) ListArtifacts(ctx context.Context, scope domain.Scope, level domain.ArtifactLevel) ([]string, error) {
	var found []domain.Artifact
	if err := a.c.do(ctx, http.MethodGet, artifactBase(scope, level), nil, &found); err != nil {
		if domain.KindOf(err) == domain.ErrNotFound {
			return []string{}, nil
		}
		return nil, err
	}
	ids := make([]string, 0, len(found))
	for _, art := range found {
		if art.Header.Level == level {
			ids = append(ids, art.Header.Identifier)
		}
	}
	return ids, nil
}

// GetArtifact only returns artifacts stored at level; a version scope read
// on the peer may otherwise fall back to the model.
func (a *artifacts) GetArtifact(ctx context.Context, scope domain.Scope, level domain.ArtifactLevel, id string) (domain.Artifact, error) {
	var out domain.Artifact
	if err := a.c.do(ctx, http.MethodGet, artifactBase(scope, level)+escape(id), nil, &out); err != nil {
		return domain.Artifact{}, err
	}
	if out.Header.Level != level {
		return domain.Artifact{}, domain.NotFound("artifact %q not found at %s level in %s", id, level, scope)
	}
	return out, nil
}

func (a *artifacts) PutArtifact(ctx context.Context, scope domain.Scope, artifact domain.Artifact) error {
	body := WriteRequest{Artifact: artifact, Force: true}
	return a.c.do(ctx, http.MethodPost, artifactBase(scope, artifact.Header.Level), body, nil)
}

func (a *artifacts) DeleteArtifact(ctx context.Context, scope domain.Scope, level domain.ArtifactLevel, id string) error {
	return a.c.do(ctx, http.MethodDelete, artifactBase(scope, level)+escape(id), nil, nil)
}
