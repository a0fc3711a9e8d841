// Package docstore implements every store family over a tree of JSON
// documents. The memory and filesystem backends differ only in the Storage
// they hand it.
package docstore

import (
	"context"
)

// Storage is a tree of named groups holding named JSON documents. Paths are
// group names from the root; the last element of a document path is its
// name. Read and Delete return domain.ErrNotFound for absent documents;
// List and ListGroups return an empty slice for absent groups.
type Storage interface {
	Read(ctx context.Context, path ...string) ([]byte, error)
	Write(ctx context.Context, data []byte, path ...string) error
	Delete(ctx context.Context, path ...string) error
	List(ctx context.Context, group ...string) ([]string, error)

	ListGroups(ctx context.Context, group ...string) ([]string, error)
	EnsureGroup(ctx context.Context, group ...string) error
	GroupExists(ctx context.Context, group ...string) (bool, error)
	DeleteGroup(ctx context.Context, group ...string) error
}

const (
	modelsGroup      = "models"
	versionsGroup    = "versions"
	artifactsGroup   = "artifacts"
	usersGroup       = "users"
	groupsGroup      = "groups"
	permissionsGroup = "permissions"
	catalogGroup     = "catalog"
	customListsGroup = "custom_lists"
)
