// Package state opens the configured stores and builds the services the
// HTTP layer and the CLI share.
package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mlte-team/mlte-sub000/internal/config"
	"github.com/mlte-team/mlte-sub000/internal/domain"
	"github.com/mlte-team/mlte-sub000/internal/infra/auth/rbac"
	"github.com/mlte-team/mlte-sub000/internal/infra/auth/token"
	"github.com/mlte-team/mlte-sub000/internal/infra/backends"
	"github.com/mlte-team/mlte-sub000/internal/infra/memstore"
	"github.com/mlte-team/mlte-sub000/internal/infra/policyopa"
	"github.com/mlte-team/mlte-sub000/internal/infra/telemetry"
	"github.com/mlte-team/mlte-sub000/internal/store"
	"github.com/mlte-team/mlte-sub000/internal/usecase"
	"github.com/mlte-team/mlte-sub000/internal/validation"
)

type Options struct {
	Logger  *slog.Logger
	Metrics *telemetry.Metrics
	// HashCost overrides the bcrypt cost of the user store when non-zero.
	HashCost int
}

// State is everything a running server holds.
type State struct {
	Config  config.Config
	Logger  *slog.Logger
	Metrics *telemetry.Metrics

	Artifacts   *store.ArtifactStore
	Users       *store.UserStore
	CustomLists *store.CustomListStore
	Catalogs    *store.CatalogGroup

	Authorizer *rbac.Authorizer
	Issuer     *token.Issuer
	Validation *validation.Engine

	UserService    *usecase.UserService
	ModelService   *usecase.ModelService
	TokenService   *usecase.TokenService
	CatalogService *usecase.CatalogService
	ResultService  *usecase.ResultService

	opts   Options
	opened []store.Backend
}

// New opens every store named by cfg. Stores sharing a URI share one
// backend, so memory:// users and artifacts see the same data.
func New(ctx context.Context, cfg config.Config, opts Options) (*State, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &State{Config: cfg, Logger: logger, Metrics: opts.Metrics, opts: opts}
	shared := make(map[string]store.Backend)
	backendOpts := backends.Options{HTTPTimeout: cfg.HTTPTimeout()}

	open := func(raw string, users bool) (store.Backend, error) {
		if b, ok := shared[raw]; ok {
			if users && b.URI().Type == store.URIHTTP {
				return nil, store.Unsupported(b.URI(), "user")
			}
			return b, nil
		}
		var (
			b   store.Backend
			err error
		)
		if users {
			b, err = backends.OpenUsers(ctx, raw, backendOpts)
		} else {
			b, err = backends.Open(ctx, raw, backendOpts)
		}
		if err != nil {
			return nil, err
		}
		shared[raw] = b
		s.opened = append(s.opened, b)
		return b, nil
	}

	storeOpts := store.Options{Logger: logger}
	if opts.Metrics != nil {
		storeOpts.Observer = telemetry.NewObserver(opts.Metrics)
	}

	fail := func(err error) (*State, error) {
		_ = s.Close()
		return nil, err
	}

	artifactBackend, err := open(cfg.StoreURI, false)
	if err != nil {
		return fail(fmt.Errorf("artifact store: %w", err))
	}
	userBackend, err := open(cfg.UserURI(), true)
	if err != nil {
		return fail(fmt.Errorf("user store: %w", err))
	}
	listBackend, err := open(cfg.CustomListURI(), false)
	if err != nil {
		return fail(fmt.Errorf("custom list store: %w", err))
	}

	s.Users = store.NewUserStore(userBackend, storeOpts)
	if opts.HashCost != 0 {
		s.Users.HashCost = opts.HashCost
	}
	s.CustomLists = store.NewCustomListStore(listBackend, storeOpts)
	s.Artifacts = store.NewArtifactStore(artifactBackend, storeOpts)
	s.Artifacts.Validators.Add(usecase.ArtifactUserValidator(s.Users))
	s.Artifacts.Validators.Add(usecase.ArtifactCustomListValidator(s.CustomLists))

	if s.Catalogs, err = s.openCatalogs(ctx, backendOpts, storeOpts); err != nil {
		return fail(err)
	}

	engine := rbac.Engine(rbac.NativeEngine{})
	if cfg.AuthzEngine == config.AuthzOPA {
		opa, err := policyopa.NewEngine(ctx)
		if err != nil {
			return fail(fmt.Errorf("opa engine: %w", err))
		}
		engine = opa
	}
	s.Authorizer = rbac.NewAuthorizer(engine)

	if cfg.JWTSecretKey == "" {
		logger.Warn("JWT_SECRET_KEY is not set; tokens will not survive a restart")
	}
	s.Issuer, err = token.NewIssuer(cfg.JWTSecretKey, cfg.TokenLifetime())
	if err != nil {
		return fail(err)
	}
	if s.Validation, err = validation.NewEngine(); err != nil {
		return fail(err)
	}

	s.UserService = usecase.NewUserService(s.Users, logger)
	s.ModelService = usecase.NewModelService(s.Artifacts, s.Users, s.Authorizer, logger)
	s.TokenService = usecase.NewTokenService(s.Users, s.Issuer)
	s.CatalogService = usecase.NewCatalogService(s.Catalogs)
	s.ResultService = usecase.NewResultService(s.Artifacts, logger)
	s.ResultService.Runner = s.Validation
	if opts.Metrics != nil {
		s.ResultService.OnValidated = func(kind domain.ResultKind) {
			opts.Metrics.ManualValidations.WithLabelValues(string(kind)).Inc()
		}
	}
	return s, nil
}

// openCatalogs registers the configured catalogs and the built-in sample.
// Each configured catalog gets its own backend.
func (s *State) openCatalogs(ctx context.Context, backendOpts backends.Options, storeOpts store.Options) (*store.CatalogGroup, error) {
	specs, err := s.Config.Catalogs()
	if err != nil {
		return nil, err
	}
	group := store.NewCatalogGroup()
	hasSample := false
	for _, spec := range specs {
		b, err := backends.Open(ctx, spec.URI, backendOpts)
		if err != nil {
			return nil, fmt.Errorf("catalog %s: %w", spec.ID, err)
		}
		s.opened = append(s.opened, b)
		catalog := store.NewCatalogStore(spec.ID, b, spec.ReadOnly, storeOpts)
		if !spec.ReadOnly {
			catalog.Validators.Add(usecase.CatalogUserValidator(s.Users))
			catalog.Validators.Add(usecase.CatalogCustomListValidator(s.CustomLists, s.Config.CatalogValidateTags))
		}
		if err := group.Add(catalog); err != nil {
			return nil, err
		}
		hasSample = hasSample || spec.ID == usecase.SampleCatalogID
	}
	if hasSample {
		return group, nil
	}
	uri, err := store.ParseURI("memory://" + usecase.SampleCatalogID)
	if err != nil {
		return nil, err
	}
	sample, err := usecase.NewSampleCatalog(ctx, memstore.New(uri), storeOpts)
	if err != nil {
		return nil, fmt.Errorf("sample catalog: %w", err)
	}
	if err := group.Add(sample); err != nil {
		return nil, err
	}
	return group, nil
}

// Init creates the default policies, the admin account and the default
// custom list entries, then reconciles model policies.
func (s *State) Init(ctx context.Context) error {
	if err := s.UserService.EnsureDefaults(ctx, s.Config.DefaultAdminPassword); err != nil {
		return fmt.Errorf("user defaults: %w", err)
	}
	if _, err := usecase.SeedCustomLists(ctx, s.CustomLists, s.Logger); err != nil {
		return fmt.Errorf("custom lists: %w", err)
	}
	if _, err := s.ModelService.CreateModelPoliciesIfNeeded(ctx); err != nil {
		return fmt.Errorf("model policies: %w", err)
	}
	return nil
}

// BackendKinds reports the backend type of each store for health checks.
func (s *State) BackendKinds() map[string]string {
	out := map[string]string{
		"artifacts":    string(s.Artifacts.URI().Type),
		"users":        string(s.Users.URI().Type),
		"custom_lists": string(s.CustomLists.URI().Type),
	}
	for _, c := range s.Catalogs.Catalogs() {
		out["catalog:"+c.ID()] = string(c.URI().Type)
	}
	return out
}

func (s *State) Close() error {
	var errs []error
	for _, b := range s.opened {
		if err := backends.Close(b); err != nil {
			errs = append(errs, err)
		}
	}
	s.opened = nil
	return errors.Join(errs...)
}

// Reset closes every backend and reopens the stores from the same
// configuration. Memory stores come back empty; run Init to restore the
// defaults.
func (s *State) Reset(ctx context.Context) error {
	closeErr := s.Close()
	fresh, err := New(ctx, s.Config, s.opts)
	if err != nil {
		return errors.Join(closeErr, err)
	}
	*s = *fresh
	return closeErr
}
