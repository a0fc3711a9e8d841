package usecase

import (
	"context"
	"errors"

	"github.com/mlte-team/mlte-sub000/internal/domain"
	"github.com/mlte-team/mlte-sub000/internal/query"
	"github.com/mlte-team/mlte-sub000/internal/store"
)

const (
	readGroupPrefix  = "read"
	writeGroupPrefix = "write"
)

var writeMethods = []domain.Method{domain.MethodPost, domain.MethodPut, domain.MethodDelete}

// Policy is the canonical set of groups and permissions guarding one
// resource, or every resource of a type when ResourceID is empty.
type Policy struct {
	ResourceType domain.ResourceType
	ResourceID   string
}

func NewPolicy(rt domain.ResourceType, resourceID string) Policy {
	return Policy{ResourceType: rt, ResourceID: resourceID}
}

func (p Policy) groupName(prefix string) string {
	name := prefix + "-" + string(p.ResourceType)
	if p.ResourceID != "" {
		name += "-" + p.ResourceID
	}
	return name
}

func (p Policy) ReadGroupName() string  { return p.groupName(readGroupPrefix) }
func (p Policy) WriteGroupName() string { return p.groupName(writeGroupPrefix) }

// Permissions is one permission per method, ANY included.
func (p Policy) Permissions() []domain.Permission {
	out := make([]domain.Permission, 0, len(domain.Methods()))
	for _, m := range domain.Methods() {
		out = append(out, domain.NewPermission(p.ResourceType, p.ResourceID, m))
	}
	return out
}

// Groups bundles GET into the read group and POST, PUT and DELETE into the
// write group.
func (p Policy) Groups() []domain.Group {
	read := domain.Group{
		Name:        p.ReadGroupName(),
		Permissions: []domain.Permission{domain.NewPermission(p.ResourceType, p.ResourceID, domain.MethodGet)},
	}
	write := domain.Group{Name: p.WriteGroupName()}
	for _, m := range writeMethods {
		write.Permissions = append(write.Permissions, domain.NewPermission(p.ResourceType, p.ResourceID, m))
	}
	return []domain.Group{read, write}
}

// Save creates whatever part of the policy is missing.
func (p Policy) Save(ctx context.Context, us *store.UserSession) error {
	for _, perm := range p.Permissions() {
		if _, err := us.Permissions().Create(ctx, perm); err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
			return err
		}
	}
	for _, group := range p.Groups() {
		if _, err := us.Groups().Create(ctx, group); err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
			return err
		}
	}
	return nil
}

// Remove deletes the policy's groups, detaching them from users, and then
// its permissions.
func (p Policy) Remove(ctx context.Context, us *store.UserSession) error {
	var errs []error
	for _, group := range p.Groups() {
		if _, err := us.Groups().Delete(ctx, group.Name); err != nil && !errors.Is(err, domain.ErrNotFound) {
			errs = append(errs, err)
		}
	}
	for _, perm := range p.Permissions() {
		if _, err := us.Permissions().Delete(ctx, perm.String()); err != nil && !errors.Is(err, domain.ErrNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Stored reports whether every group and permission of the policy exists.
func (p Policy) Stored(ctx context.Context, us *store.UserSession) (bool, error) {
	for _, perm := range p.Permissions() {
		if ok, err := exists(ctx, us.Permissions(), perm.String()); err != nil || !ok {
			return false, err
		}
	}
	for _, group := range p.Groups() {
		if ok, err := exists(ctx, us.Groups(), group.Name); err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// AssignTo adds both groups to username.
func (p Policy) AssignTo(ctx context.Context, us *store.UserSession, username string) error {
	user, err := us.Users().Read(ctx, username)
	if err != nil {
		return err
	}
	changed := false
	for _, group := range p.Groups() {
		if !user.InGroup(group.Name) {
			user.Groups = append(user.Groups, domain.Group{Name: group.Name})
			changed = true
		}
	}
	if !changed {
		return nil
	}
	_, err = us.Users().Edit(ctx, user)
	return err
}

func exists[T query.Item](ctx context.Context, m store.Mapper[T], id string) (bool, error) {
	_, err := m.Read(ctx, id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// DefaultPolicies covers every resource type with no resource id.
func DefaultPolicies() []Policy {
	out := make([]Policy, 0, len(domain.ResourceTypes()))
	for _, rt := range domain.ResourceTypes() {
		out = append(out, NewPolicy(rt, ""))
	}
	return out
}
