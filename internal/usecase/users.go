package usecase

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/mlte-team/mlte-sub000/internal/domain"
	"github.com/mlte-team/mlte-sub000/internal/store"
)

const DefaultAdminUsername = "admin"

type UserService struct {
	Users  *store.UserStore
	Logger *slog.Logger
}

func NewUserService(users *store.UserStore, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{Users: users, Logger: logger}
}

func (s *UserService) session(ctx context.Context) (*store.UserSession, error) {
	if s == nil || s.Users == nil {
		return nil, errors.New("user store is required")
	}
	return s.Users.Session(ctx)
}

// Create stores user and gives it its own read/write policy. Only admins
// may assign groups or the admin role.
func (s *UserService) Create(ctx context.Context, actor, user domain.User) (domain.User, error) {
	if !actor.IsAdmin() {
		if user.Role == domain.RoleAdmin {
			return domain.User{}, domain.Forbidden("only admins may create admin users")
		}
		if len(user.Groups) > 0 {
			return domain.User{}, domain.Forbidden("only admins may assign groups")
		}
	}
	var out domain.User
	err := store.With(ctx, s.session, func(us *store.UserSession) error {
		if _, err := us.Users().Create(ctx, user); err != nil {
			return err
		}
		policy := NewPolicy(domain.ResourceUser, user.Username)
		if err := policy.Save(ctx, us); err != nil {
			return err
		}
		if err := policy.AssignTo(ctx, us, user.Username); err != nil {
			return err
		}
		created, err := us.Users().Read(ctx, user.Username)
		out = created
		return err
	})
	if err != nil {
		return domain.User{}, err
	}
	s.Logger.InfoContext(ctx, "user created", "username", out.Username, "by", actor.Username)
	return out.Public(), nil
}

// Edit updates user. A nil Groups or empty Role keeps the stored value.
// Non-admins may change neither.
func (s *UserService) Edit(ctx context.Context, actor, user domain.User) (domain.User, error) {
	var out domain.User
	err := store.With(ctx, s.session, func(us *store.UserSession) error {
		existing, err := us.Users().Read(ctx, user.Username)
		if err != nil {
			return err
		}
		if user.Role == "" {
			user.Role = existing.Role
		}
		if user.Groups == nil {
			user.Groups = existing.Groups
		}
		if !actor.IsAdmin() {
			if user.Role != existing.Role {
				return domain.Forbidden("only admins may change a user's role")
			}
			if !sameGroups(user.Groups, existing.Groups) {
				return domain.Forbidden("only admins may change a user's groups")
			}
		}
		edited, err := us.Users().Edit(ctx, user)
		if err != nil {
			return err
		}
		out, err = us.Users().Read(ctx, edited.Username)
		return err
	})
	if err != nil {
		return domain.User{}, err
	}
	return out.Public(), nil
}

// Delete removes the user and its policy. Artifacts keep their creator.
func (s *UserService) Delete(ctx context.Context, username string) (domain.User, error) {
	var out domain.User
	err := store.With(ctx, s.session, func(us *store.UserSession) error {
		deleted, err := us.Users().Delete(ctx, username)
		if err != nil {
			return err
		}
		out = deleted
		return NewPolicy(domain.ResourceUser, username).Remove(ctx, us)
	})
	if err != nil {
		return domain.User{}, err
	}
	return out.Public(), nil
}

func (s *UserService) Read(ctx context.Context, username string) (domain.User, error) {
	var out domain.User
	err := store.With(ctx, s.session, func(us *store.UserSession) error {
		user, err := us.Users().Read(ctx, username)
		out = user
		return err
	})
	return out.Public(), err
}

func (s *UserService) List(ctx context.Context) ([]string, error) {
	var out []string
	err := store.With(ctx, s.session, func(us *store.UserSession) error {
		ids, err := us.Users().List(ctx)
		out = ids
		return err
	})
	return out, err
}

func (s *UserService) ListDetails(ctx context.Context, limit, offset int) ([]domain.User, error) {
	var out []domain.User
	err := store.With(ctx, s.session, func(us *store.UserSession) error {
		users, err := us.Users().ListDetails(ctx, limit, offset)
		if err != nil {
			return err
		}
		out = make([]domain.User, 0, len(users))
		for _, u := range users {
			out = append(out, u.Public())
		}
		return nil
	})
	return out, err
}

// EnsureDefaults creates the per-type default policies and the admin
// account when they are missing.
func (s *UserService) EnsureDefaults(ctx context.Context, adminPassword string) error {
	return store.With(ctx, s.session, func(us *store.UserSession) error {
		for _, policy := range DefaultPolicies() {
			if err := policy.Save(ctx, us); err != nil {
				return err
			}
		}
		_, err := us.Users().Read(ctx, DefaultAdminUsername)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		admin := domain.User{
			Username: DefaultAdminUsername,
			Role:     domain.RoleAdmin,
			Password: adminPassword,
		}
		if _, err := us.Users().Create(ctx, admin); err != nil {
			return err
		}
		s.Logger.InfoContext(ctx, "default admin user created", "username", DefaultAdminUsername)
		return nil
	})
}

func sameGroups(a, b []domain.Group) bool {
	return slices.Equal(groupSet(a), groupSet(b))
}

func groupSet(groups []domain.Group) []string {
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.Name)
	}
	slices.Sort(names)
	return slices.Compact(names)
}
