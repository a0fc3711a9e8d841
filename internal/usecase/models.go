package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mlte-team/mlte-sub000/internal/domain"
	"github.com/mlte-team/mlte-sub000/internal/store"
)

// ModelService keeps model lifecycles and model policies in step.
type ModelService struct {
	Artifacts  *store.ArtifactStore
	Users      *store.UserStore
	Authorizer Authorizer
	Logger     *slog.Logger
}

func NewModelService(artifacts *store.ArtifactStore, users *store.UserStore, authorizer Authorizer, logger *slog.Logger) *ModelService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ModelService{Artifacts: artifacts, Users: users, Authorizer: authorizer, Logger: logger}
}

func (s *ModelService) artifacts(ctx context.Context) (*store.ArtifactSession, error) {
	if s == nil || s.Artifacts == nil {
		return nil, errors.New("artifact store is required")
	}
	return s.Artifacts.Session(ctx)
}

func (s *ModelService) users(ctx context.Context) (*store.UserSession, error) {
	if s == nil || s.Users == nil {
		return nil, errors.New("user store is required")
	}
	return s.Users.Session(ctx)
}

// Create stores the model, builds its policy and attaches it to creator.
// The two steps are not atomic.
func (s *ModelService) Create(ctx context.Context, creator domain.User, model domain.Model) (domain.Model, error) {
	var out domain.Model
	err := store.With(ctx, s.artifacts, func(as *store.ArtifactSession) error {
		created, err := as.Models().Create(ctx, model)
		out = created
		return err
	})
	if err != nil {
		return domain.Model{}, err
	}
	if err := s.attachPolicy(ctx, creator, model.Identifier); err != nil {
		return domain.Model{}, err
	}
	s.Logger.InfoContext(ctx, "model created", "model", model.Identifier, "by", creator.Username)
	return out, nil
}

func (s *ModelService) attachPolicy(ctx context.Context, creator domain.User, modelID string) error {
	policy := NewPolicy(domain.ResourceModel, modelID)
	return store.With(ctx, s.users, func(us *store.UserSession) error {
		if err := policy.Save(ctx, us); err != nil {
			return err
		}
		if creator.Username == "" {
			return nil
		}
		return policy.AssignTo(ctx, us, creator.Username)
	})
}

// Delete removes the model with its versions and artifacts, then its
// policy.
func (s *ModelService) Delete(ctx context.Context, modelID string) (domain.Model, error) {
	var out domain.Model
	err := store.With(ctx, s.artifacts, func(as *store.ArtifactSession) error {
		deleted, err := as.Models().Delete(ctx, modelID)
		out = deleted
		return err
	})
	if err != nil {
		return domain.Model{}, err
	}
	err = store.With(ctx, s.users, func(us *store.UserSession) error {
		return NewPolicy(domain.ResourceModel, modelID).Remove(ctx, us)
	})
	if err != nil {
		return domain.Model{}, err
	}
	return out, nil
}

// CreateModelPoliciesIfNeeded builds the policy of every model that lacks
// one and returns those model ids.
func (s *ModelService) CreateModelPoliciesIfNeeded(ctx context.Context) ([]string, error) {
	var models []string
	err := store.With(ctx, s.artifacts, func(as *store.ArtifactSession) error {
		ids, err := as.Models().List(ctx)
		models = ids
		return err
	})
	if err != nil {
		return nil, err
	}
	created := make([]string, 0)
	err = store.With(ctx, s.users, func(us *store.UserSession) error {
		for _, id := range models {
			policy := NewPolicy(domain.ResourceModel, id)
			ok, err := policy.Stored(ctx, us)
			if err != nil {
				return err
			}
			if ok {
				continue
			}
			if err := policy.Save(ctx, us); err != nil {
				return err
			}
			created = append(created, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(created) > 0 {
		s.Logger.InfoContext(ctx, "model policies reconciled", "models", created)
	}
	return created, nil
}

// VisibleModels lists the models user may GET.
func (s *ModelService) VisibleModels(ctx context.Context, user domain.User) ([]string, error) {
	var models []string
	err := store.With(ctx, s.artifacts, func(as *store.ArtifactSession) error {
		ids, err := as.Models().List(ctx)
		models = ids
		return err
	})
	if err != nil {
		return nil, err
	}
	if s.Authorizer == nil {
		return models, nil
	}
	out := make([]string, 0, len(models))
	for _, id := range models {
		ok, err := s.Authorizer.IsAuthorized(ctx, user, domain.NewPermission(domain.ResourceModel, id, domain.MethodGet))
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// WriteArtifact stamps the creator and writes through the artifact mapper.
// A model created through opts.Parents gets its policy like any other.
func (s *ModelService) WriteArtifact(ctx context.Context, actor domain.User, scope domain.Scope, artifact domain.Artifact, opts store.WriteOptions, edit bool) (domain.Artifact, error) {
	if artifact.Header.Creator == "" {
		artifact.Header.Creator = actor.Username
	}
	modelExisted := true
	var out domain.Artifact
	err := store.With(ctx, s.artifacts, func(as *store.ArtifactSession) error {
		if opts.Parents {
			if _, err := as.Models().Read(ctx, scope.ModelID); errors.Is(err, domain.ErrNotFound) {
				modelExisted = false
			}
		}
		var err error
		if edit {
			out, err = as.Artifacts().Edit(ctx, scope, artifact, opts)
		} else {
			out, err = as.Artifacts().Create(ctx, scope, artifact, opts)
		}
		return err
	})
	if err != nil {
		return domain.Artifact{}, err
	}
	if !modelExisted {
		if err := s.attachPolicy(ctx, actor, scope.ModelID); err != nil {
			return domain.Artifact{}, err
		}
	}
	return out, nil
}
