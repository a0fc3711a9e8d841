package store

import (
	"context"
	"errors"

	"github.com/mlte-team/mlte-sub000/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

type UserStore struct {
	backend Backend
	opts    Options
	// HashCost is the bcrypt cost used for new passwords.
	HashCost int
}

func NewUserStore(backend Backend, opts Options) *UserStore {
	return &UserStore{backend: backend, opts: opts, HashCost: bcrypt.DefaultCost}
}

func (s *UserStore) URI() URI { return s.backend.URI() }

func (s *UserStore) Session(ctx context.Context) (*UserSession, error) {
	sess, err := s.backend.Open(ctx)
	if err != nil {
		return nil, err
	}
	primitives, err := sess.Users()
	if err != nil {
		_ = sess.Close()
		return nil, err
	}
	us := &UserSession{store: s, session: sess, backend: primitives}
	us.users = &Collection[domain.User]{
		Kind:    "user",
		Backend: primitives.Users(),
		Prepare: us.prepareUser,
		Resolve: us.resolveUser,
	}
	us.groups = &Collection[domain.Group]{
		Kind:        "group",
		Backend:     primitives.Groups(),
		Prepare:     us.prepareGroup,
		AfterDelete: us.detachGroup,
	}
	us.permissions = &Collection[domain.Permission]{
		Kind:        "permission",
		Backend:     primitives.Permissions(),
		Prepare:     us.preparePermission,
		AfterDelete: us.detachPermission,
	}
	return us, nil
}

// UserSession exposes users, groups and permissions. Groups must reference
// existing permissions and users must reference existing groups.
type UserSession struct {
	store       *UserStore
	session     Session
	backend     UserBackend
	users       *Collection[domain.User]
	groups      *Collection[domain.Group]
	permissions *Collection[domain.Permission]
}

func (s *UserSession) Close() error { return s.session.Close() }

func (s *UserSession) Users() Mapper[domain.User]             { return s.users }
func (s *UserSession) Groups() Mapper[domain.Group]           { return s.groups }
func (s *UserSession) Permissions() Mapper[domain.Permission] { return s.permissions }

// Authenticate checks a password against the stored hash.
func (s *UserSession) Authenticate(ctx context.Context, username, password string) (domain.User, error) {
	user, err := s.backend.Users().Get(ctx, username)
	if err != nil {
		if isNotFound(err) {
			return domain.User{}, domain.Unauthenticated("incorrect username or password")
		}
		return domain.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return domain.User{}, domain.Unauthenticated("incorrect username or password")
	}
	if user.Disabled {
		return domain.User{}, domain.Unauthenticated("user %q is disabled", username)
	}
	return s.resolveUser(ctx, user)
}

func (s *UserSession) prepareUser(ctx context.Context, user domain.User, existing *domain.User) (domain.User, error) {
	if user.Username == domain.SelfUsername {
		return domain.User{}, domain.BadRequest("username %q is reserved", domain.SelfUsername)
	}
	if err := domain.Validate(user); err != nil {
		return domain.User{}, err
	}
	if user.Role == "" {
		user.Role = domain.RoleRegular
	}
	switch {
	case user.Password != "":
		hashed, err := bcrypt.GenerateFromPassword([]byte(user.Password), s.store.HashCost)
		if err != nil {
			return domain.User{}, domain.Wrap(domain.ErrInternal, err, "hash password")
		}
		user.HashedPassword = string(hashed)
		user.Password = ""
	case existing != nil:
		user.HashedPassword = existing.HashedPassword
	case user.HashedPassword == "":
		return domain.User{}, domain.BadRequest("user %q needs a password", user.Username)
	}
	names := make([]domain.Group, 0, len(user.Groups))
	seen := make(map[string]struct{}, len(user.Groups))
	for _, g := range user.Groups {
		if _, dup := seen[g.Name]; dup {
			continue
		}
		seen[g.Name] = struct{}{}
		if _, err := s.backend.Groups().Get(ctx, g.Name); err != nil {
			if isNotFound(err) {
				return domain.User{}, domain.Referential("user %q references unknown group %q", user.Username, g.Name)
			}
			return domain.User{}, err
		}
		names = append(names, domain.Group{Name: g.Name})
	}
	user.Groups = names
	return user, nil
}

// resolveUser replaces stored group names with the current groups, dropping
// any that no longer exist.
func (s *UserSession) resolveUser(ctx context.Context, user domain.User) (domain.User, error) {
	resolved := make([]domain.Group, 0, len(user.Groups))
	for _, g := range user.Groups {
		group, err := s.backend.Groups().Get(ctx, g.Name)
		if isNotFound(err) {
			continue
		}
		if err != nil {
			return domain.User{}, err
		}
		resolved = append(resolved, group)
	}
	user.Groups = resolved
	return user, nil
}

func (s *UserSession) prepareGroup(ctx context.Context, group domain.Group, _ *domain.Group) (domain.Group, error) {
	if err := domain.Validate(group); err != nil {
		return domain.Group{}, err
	}
	perms := make([]domain.Permission, 0, len(group.Permissions))
	seen := make(map[string]struct{}, len(group.Permissions))
	for _, p := range group.Permissions {
		key := p.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		stored, err := s.backend.Permissions().Get(ctx, key)
		if err != nil {
			if isNotFound(err) {
				return domain.Group{}, domain.Referential("group %q references unknown permission %q", group.Name, key)
			}
			return domain.Group{}, err
		}
		perms = append(perms, stored)
	}
	group.Permissions = perms
	return group, nil
}

func (s *UserSession) preparePermission(_ context.Context, p domain.Permission, _ *domain.Permission) (domain.Permission, error) {
	if err := domain.Validate(p); err != nil {
		return domain.Permission{}, err
	}
	if _, err := domain.ParsePermission(p.String()); err != nil {
		return domain.Permission{}, err
	}
	return p, nil
}

// detachGroup removes a deleted group from every user holding it.
func (s *UserSession) detachGroup(ctx context.Context, group domain.Group) error {
	users := s.backend.Users()
	ids, err := users.List(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		user, err := users.Get(ctx, id)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return err
		}
		kept := make([]domain.Group, 0, len(user.Groups))
		for _, g := range user.Groups {
			if g.Name != group.Name {
				kept = append(kept, domain.Group{Name: g.Name})
			}
		}
		if len(kept) == len(user.Groups) {
			continue
		}
		user.Groups = kept
		if err := users.Put(ctx, user); err != nil {
			return err
		}
	}
	return nil
}

// detachPermission removes a deleted permission from every group.
func (s *UserSession) detachPermission(ctx context.Context, p domain.Permission) error {
	groups := s.backend.Groups()
	ids, err := groups.List(ctx)
	if err != nil {
		return err
	}
	key := p.String()
	var errs []error
	for _, id := range ids {
		group, err := groups.Get(ctx, id)
		if err != nil {
			if !isNotFound(err) {
				errs = append(errs, err)
			}
			continue
		}
		kept := make([]domain.Permission, 0, len(group.Permissions))
		for _, existing := range group.Permissions {
			if existing.String() != key {
				kept = append(kept, existing)
			}
		}
		if len(kept) == len(group.Permissions) {
			continue
		}
		group.Permissions = kept
		if err := groups.Put(ctx, group); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
