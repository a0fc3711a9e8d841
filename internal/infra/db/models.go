package db

import (
	"gorm.io/datatypes"
)

// EnumRow is the shape of every pre-populated enumeration table.
type EnumRow struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:64;uniqueIndex;not null"`
}

type ArtifactTypeRow struct{ EnumRow }

func (ArtifactTypeRow) TableName() string { return "artifact_types" }

type ProblemTypeRow struct{ EnumRow }

func (ProblemTypeRow) TableName() string { return "problem_types" }

type DataClassificationRow struct{ EnumRow }

func (DataClassificationRow) TableName() string { return "data_classifications" }

type MethodTypeRow struct{ EnumRow }

func (MethodTypeRow) TableName() string { return "method_types" }

type RoleTypeRow struct{ EnumRow }

func (RoleTypeRow) TableName() string { return "role_types" }

type ResourceTypeRow struct{ EnumRow }

func (ResourceTypeRow) TableName() string { return "resource_types" }

type ModelRow struct {
	ID         uint         `gorm:"primaryKey"`
	Identifier string       `gorm:"size:255;uniqueIndex;not null"`
	Versions   []VersionRow `gorm:"foreignKey:ModelID;constraint:OnDelete:CASCADE"`
}

func (ModelRow) TableName() string { return "models" }

type VersionRow struct {
	ID         uint   `gorm:"primaryKey"`
	ModelID    uint   `gorm:"not null;uniqueIndex:idx_version_model"`
	Identifier string `gorm:"size:255;not null;uniqueIndex:idx_version_model"`
}

func (VersionRow) TableName() string { return "versions" }

// ArtifactRow keeps the body as JSON and lifts the columns searches filter
// on. ScopeKey is "<model>" or "<model>/<version>".
type ArtifactRow struct {
	ID              uint                    `gorm:"primaryKey"`
	Identifier      string                  `gorm:"size:255;not null;uniqueIndex:idx_artifact_scope"`
	ScopeKey        string                  `gorm:"size:512;not null;uniqueIndex:idx_artifact_scope"`
	ModelID         uint                    `gorm:"not null;index"`
	Model           ModelRow                `gorm:"constraint:OnDelete:CASCADE"`
	VersionID       *uint                   `gorm:"index"`
	Version         *VersionRow             `gorm:"constraint:OnDelete:CASCADE"`
	Level           string                  `gorm:"size:16;not null"`
	TypeID          uint                    `gorm:"not null;index"`
	Type            ArtifactTypeRow         `gorm:"foreignKey:TypeID"`
	Timestamp       int64                   `gorm:"not null"`
	Creator         string                  `gorm:"size:255"`
	ProblemTypeID   *uint                   `gorm:"index"`
	ProblemType     *ProblemTypeRow         `gorm:"foreignKey:ProblemTypeID"`
	Classifications []DataClassificationRow `gorm:"many2many:artifact_classifications;joinForeignKey:ArtifactID;joinReferences:ClassificationID"`
	Body            datatypes.JSON          `gorm:"not null"`
}

func (ArtifactRow) TableName() string { return "artifacts" }

type UserRow struct {
	ID             uint        `gorm:"primaryKey"`
	Username       string      `gorm:"size:255;uniqueIndex;not null"`
	Email          string      `gorm:"size:255"`
	FullName       string      `gorm:"size:255"`
	Disabled       bool        `gorm:"not null;default:false"`
	RoleID         uint        `gorm:"not null"`
	Role           RoleTypeRow `gorm:"foreignKey:RoleID"`
	HashedPassword string      `gorm:"size:255;not null"`
	Groups         []GroupRow  `gorm:"many2many:user_groups;joinForeignKey:UserID;joinReferences:GroupID;constraint:OnDelete:CASCADE"`
}

func (UserRow) TableName() string { return "users" }

type GroupRow struct {
	ID          uint            `gorm:"primaryKey"`
	Name        string          `gorm:"size:255;uniqueIndex;not null"`
	Permissions []PermissionRow `gorm:"many2many:group_permissions;joinForeignKey:GroupID;joinReferences:PermissionID;constraint:OnDelete:CASCADE"`
}

func (GroupRow) TableName() string { return "groups" }

type PermissionRow struct {
	ID             uint            `gorm:"primaryKey"`
	Key            string          `gorm:"column:perm_key;size:512;uniqueIndex;not null"`
	ResourceTypeID uint            `gorm:"not null"`
	ResourceType   ResourceTypeRow `gorm:"foreignKey:ResourceTypeID"`
	ResourceID     string          `gorm:"size:255"`
	MethodID       uint            `gorm:"not null"`
	Method         MethodTypeRow   `gorm:"foreignKey:MethodID"`
}

func (PermissionRow) TableName() string { return "permissions" }

type CatalogEntryRow struct {
	ID               uint           `gorm:"primaryKey"`
	Identifier       string         `gorm:"size:255;uniqueIndex;not null"`
	Creator          string         `gorm:"size:255"`
	Created          int64          `gorm:"not null;default:0"`
	Updater          string         `gorm:"size:255"`
	Updated          int64          `gorm:"not null;default:0"`
	Tags             datatypes.JSON `gorm:"not null"`
	QualityAttribute string         `gorm:"size:255"`
	Code             string         `gorm:"type:text"`
	Description      string         `gorm:"type:text"`
	Inputs           string         `gorm:"type:text"`
	Output           string         `gorm:"type:text"`
}

func (CatalogEntryRow) TableName() string { return "catalog_entries" }

type CustomListEntryRow struct {
	ID          uint   `gorm:"primaryKey"`
	List        string `gorm:"column:list_name;size:64;not null;uniqueIndex:idx_custom_list_entry"`
	Name        string `gorm:"size:255;not null;uniqueIndex:idx_custom_list_entry"`
	Description string `gorm:"type:text"`
	Parent      string `gorm:"size:255"`
}

func (CustomListEntryRow) TableName() string { return "custom_list_entries" }

func allModels() []any {
	return []any{
		&ArtifactTypeRow{}, &ProblemTypeRow{}, &DataClassificationRow{},
		&MethodTypeRow{}, &RoleTypeRow{}, &ResourceTypeRow{},
		&ModelRow{}, &VersionRow{}, &ArtifactRow{},
		&PermissionRow{}, &GroupRow{}, &UserRow{},
		&CatalogEntryRow{}, &CustomListEntryRow{},
	}
}
