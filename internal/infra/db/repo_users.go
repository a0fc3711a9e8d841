package db

import (
	"context"
	"errors"

	"github.com/mlte-team/mlte-sub000/internal/domain"
	"github.com/mlte-team/mlte-sub000/internal/store"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	db *gorm.DB
}

var (
	_ store.DocumentBackend[domain.User] = (*UserRepository)(nil)
	_ store.DetailLister[domain.User]    = (*UserRepository)(nil)
)

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) List(ctx context.Context) ([]string, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var ids []string
	if err := r.db.WithContext(ctx).Model(&UserRow{}).Order("username").Pluck("username", &ids).Error; err != nil {
		return nil, mapErr(err, "list users")
	}
	return ids, nil
}

func (r *UserRepository) Get(ctx context.Context, username string) (domain.User, error) {
	if r.db == nil {
		return domain.User{}, errDBUnavailable
	}
	var row UserRow
	err := r.db.WithContext(ctx).Preload("Role").Preload("Groups").Where("username = ?", username).First(&row).Error
	if err != nil {
		return domain.User{}, mapErr(err, "user %q not found", username)
	}
	return userFromRow(row), nil
}

// ListDetails loads a page of users with their groups in two queries.
func (r *UserRepository) ListDetails(ctx context.Context, limit, offset int) ([]domain.User, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	tx := r.db.WithContext(ctx).Preload("Role").Preload("Groups").Order("username").Offset(offset)
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	var rows []UserRow
	if err := tx.Find(&rows).Error; err != nil {
		return nil, mapErr(err, "list users")
	}
	out := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		out = append(out, userFromRow(row))
	}
	return out, nil
}

func userFromRow(row UserRow) domain.User {
	groups := make([]domain.Group, 0, len(row.Groups))
	for _, g := range row.Groups {
		groups = append(groups, domain.Group{Name: g.Name})
	}
	return domain.User{
		Username:       row.Username,
		Email:          row.Email,
		FullName:       row.FullName,
		Disabled:       row.Disabled,
		Role:           domain.Role(row.Role.Name),
		Groups:         groups,
		HashedPassword: row.HashedPassword,
	}
}

func (r *UserRepository) Put(ctx context.Context, user domain.User) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		roleID, err := enumID[RoleTypeRow](tx, string(user.Role))
		if err != nil {
			return err
		}
		row := UserRow{
			Username:       user.Username,
			Email:          user.Email,
			FullName:       user.FullName,
			Disabled:       user.Disabled,
			RoleID:         roleID,
			HashedPassword: user.HashedPassword,
		}
		var existing UserRow
		err = tx.Where("username = ?", user.Username).First(&existing).Error
		switch {
		case err == nil:
			row.ID = existing.ID
			err = tx.Omit(clause.Associations).Save(&row).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			err = tx.Omit(clause.Associations).Create(&row).Error
		}
		if err != nil {
			return mapErr(err, "write user %q", user.Username)
		}
		groups, err := groupRowsByName(tx, user.GroupNames())
		if err != nil {
			return err
		}
		return mapErr(tx.Model(&row).Association("Groups").Replace(groups), "link groups of %q", user.Username)
	})
}

func (r *UserRepository) Delete(ctx context.Context, username string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row UserRow
		if err := tx.Where("username = ?", username).First(&row).Error; err != nil {
			return mapErr(err, "user %q not found", username)
		}
		return mapErr(tx.Select("Groups").Delete(&row).Error, "delete user %q", username)
	})
}

func groupRowsByName(tx *gorm.DB, names []string) ([]GroupRow, error) {
	rows := make([]GroupRow, 0, len(names))
	if len(names) == 0 {
		return rows, nil
	}
	if err := tx.Where("name IN ?", names).Find(&rows).Error; err != nil {
		return nil, mapErr(err, "find groups")
	}
	return rows, nil
}

type GroupRepository struct {
	db *gorm.DB
}

var _ store.DocumentBackend[domain.Group] = (*GroupRepository)(nil)

func NewGroupRepository(db *gorm.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

func (r *GroupRepository) List(ctx context.Context) ([]string, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var ids []string
	if err := r.db.WithContext(ctx).Model(&GroupRow{}).Order("name").Pluck("name", &ids).Error; err != nil {
		return nil, mapErr(err, "list groups")
	}
	return ids, nil
}

func (r *GroupRepository) Get(ctx context.Context, name string) (domain.Group, error) {
	if r.db == nil {
		return domain.Group{}, errDBUnavailable
	}
	var row GroupRow
	err := r.db.WithContext(ctx).
		Preload("Permissions.ResourceType").Preload("Permissions.Method").
		Where("name = ?", name).First(&row).Error
	if err != nil {
		return domain.Group{}, mapErr(err, "group %q not found", name)
	}
	perms := make([]domain.Permission, 0, len(row.Permissions))
	for _, p := range row.Permissions {
		perms = append(perms, permissionFromRow(p))
	}
	return domain.Group{Name: row.Name, Permissions: perms}, nil
}

func (r *GroupRepository) Put(ctx context.Context, group domain.Group) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := GroupRow{Name: group.Name}
		var existing GroupRow
		err := tx.Where("name = ?", group.Name).First(&existing).Error
		switch {
		case err == nil:
			row = existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Omit(clause.Associations).Create(&row).Error; err != nil {
				return mapErr(err, "write group %q", group.Name)
			}
		default:
			return mapErr(err, "find group %q", group.Name)
		}
		keys := make([]string, 0, len(group.Permissions))
		for _, p := range group.Permissions {
			keys = append(keys, p.String())
		}
		perms := make([]PermissionRow, 0, len(keys))
		if len(keys) > 0 {
			if err := tx.Where("perm_key IN ?", keys).Find(&perms).Error; err != nil {
				return mapErr(err, "find permissions")
			}
		}
		return mapErr(tx.Model(&row).Association("Permissions").Replace(perms), "link permissions of %q", group.Name)
	})
}

func (r *GroupRepository) Delete(ctx context.Context, name string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row GroupRow
		if err := tx.Where("name = ?", name).First(&row).Error; err != nil {
			return mapErr(err, "group %q not found", name)
		}
		if err := tx.Exec("DELETE FROM user_groups WHERE group_id = ?", row.ID).Error; err != nil {
			return mapErr(err, "unlink group %q", name)
		}
		return mapErr(tx.Select("Permissions").Delete(&row).Error, "delete group %q", name)
	})
}

type PermissionRepository struct {
	db *gorm.DB
}

var _ store.DocumentBackend[domain.Permission] = (*PermissionRepository)(nil)

func NewPermissionRepository(db *gorm.DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

func (r *PermissionRepository) List(ctx context.Context) ([]string, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var ids []string
	if err := r.db.WithContext(ctx).Model(&PermissionRow{}).Order("perm_key").Pluck("perm_key", &ids).Error; err != nil {
		return nil, mapErr(err, "list permissions")
	}
	return ids, nil
}

func (r *PermissionRepository) Get(ctx context.Context, key string) (domain.Permission, error) {
	if r.db == nil {
		return domain.Permission{}, errDBUnavailable
	}
	var row PermissionRow
	err := r.db.WithContext(ctx).Preload("ResourceType").Preload("Method").Where("perm_key = ?", key).First(&row).Error
	if err != nil {
		return domain.Permission{}, mapErr(err, "permission %q not found", key)
	}
	return permissionFromRow(row), nil
}

func permissionFromRow(row PermissionRow) domain.Permission {
	return domain.Permission{
		ResourceType: domain.ResourceType(row.ResourceType.Name),
		ResourceID:   row.ResourceID,
		Method:       domain.Method(row.Method.Name),
	}
}

func (r *PermissionRepository) Put(ctx context.Context, p domain.Permission) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rtID, err := enumID[ResourceTypeRow](tx, string(p.ResourceType))
		if err != nil {
			return err
		}
		methodID, err := enumID[MethodTypeRow](tx, string(p.Method))
		if err != nil {
			return err
		}
		row := PermissionRow{Key: p.String(), ResourceTypeID: rtID, ResourceID: p.ResourceID, MethodID: methodID}
		err = tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "perm_key"}}, DoNothing: true}).
			Create(&row).Error
		return mapErr(err, "write permission %q", row.Key)
	})
}

func (r *PermissionRepository) Delete(ctx context.Context, key string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row PermissionRow
		if err := tx.Where("perm_key = ?", key).First(&row).Error; err != nil {
			return mapErr(err, "permission %q not found", key)
		}
		if err := tx.Exec("DELETE FROM group_permissions WHERE permission_id = ?", row.ID).Error; err != nil {
			return mapErr(err, "unlink permission %q", key)
		}
		return mapErr(tx.Delete(&row).Error, "delete permission %q", key)
	})
}
