// Package db is the relational store backend.
package db

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/mlte-team/mlte-sub000/internal/domain"
	"github.com/mlte-team/mlte-sub000/internal/store"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type Store struct {
	DB  *gorm.DB
	uri store.URI
}

var _ store.Backend = (*Store)(nil)

// Open connects to the database named by uri, creates missing tables and
// seeds the enumeration tables.
func Open(ctx context.Context, uri store.URI) (*Store, error) {
	dialector, err := Dialector(uri)
	if err != nil {
		return nil, err
	}
	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", uri.Prefix, err)
	}
	s := &Store{DB: gdb, uri: uri}
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	slog.Default().Info("relational store ready", "dialect", uri.Prefix, "uri", uri.Redacted())
	return s, nil
}

// Init creates the schema if absent and inserts enumeration rows that are
// missing. It is safe to run repeatedly.
func (s *Store) Init(ctx context.Context) error {
	tx := s.DB.WithContext(ctx)
	if err := tx.AutoMigrate(allModels()...); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	seeds := []func(*gorm.DB) error{
		func(tx *gorm.DB) error {
			return seedEnum(tx, domain.ArtifactTypes(), func(e EnumRow) ArtifactTypeRow { return ArtifactTypeRow{e} })
		},
		func(tx *gorm.DB) error {
			return seedEnum(tx, domain.ProblemTypes(), func(e EnumRow) ProblemTypeRow { return ProblemTypeRow{e} })
		},
		func(tx *gorm.DB) error {
			return seedEnum(tx, domain.DataClassifications(), func(e EnumRow) DataClassificationRow { return DataClassificationRow{e} })
		},
		func(tx *gorm.DB) error {
			return seedEnum(tx, domain.Methods(), func(e EnumRow) MethodTypeRow { return MethodTypeRow{e} })
		},
		func(tx *gorm.DB) error {
			return seedEnum(tx, domain.Roles(), func(e EnumRow) RoleTypeRow { return RoleTypeRow{e} })
		},
		func(tx *gorm.DB) error {
			return seedEnum(tx, domain.ResourceTypes(), func(e EnumRow) ResourceTypeRow { return ResourceTypeRow{e} })
		},
	}
	for _, seed := range seeds {
		if err := seed(tx); err != nil {
			return err
		}
	}
	return nil
}

func seedEnum[V ~string, R any](tx *gorm.DB, values []V, build func(EnumRow) R) error {
	rows := make([]R, 0, len(values))
	for _, v := range values {
		rows = append(rows, build(EnumRow{Name: string(v)}))
	}
	err := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).Create(&rows).Error
	if err != nil {
		var zero R
		return fmt.Errorf("seed %T: %w", zero, err)
	}
	return nil
}

func (s *Store) URI() store.URI { return s.uri }

func (s *Store) Open(ctx context.Context) (store.Session, error) {
	return &session{db: s.DB.WithContext(ctx), uri: s.uri}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Dialector picks the gorm driver for uri's prefix.
func Dialector(uri store.URI) (gorm.Dialector, error) {
	switch uri.Prefix {
	case "sqlite":
		return sqlite.Open(sqlitePath(uri.Path)), nil
	case "postgresql", "postgres":
		return postgres.Open("postgres://" + uri.Path), nil
	case "mysql":
		dsn, err := mysqlDSN(uri.Path)
		if err != nil {
			return nil, err
		}
		return mysql.Open(dsn), nil
	case "mssql":
		return sqlserver.Open("sqlserver://" + uri.Path), nil
	case "oracle":
		return nil, domain.BadRequest("oracle stores are not supported by this build")
	}
	return nil, domain.BadRequest("%q is not a relational store uri", uri.Raw)
}

// sqlitePath follows the sqlite:///relative.db and sqlite:////abs.db
// convention.
func sqlitePath(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	if trimmed == "" || trimmed == ":memory:" {
		return ":memory:"
	}
	return trimmed
}

// mysqlDSN turns user:pass@host:port/db into the go-sql-driver form.
func mysqlDSN(path string) (string, error) {
	u, err := url.Parse("mysql://" + path)
	if err != nil {
		return "", domain.BadRequest("invalid mysql uri: %v", err)
	}
	var b strings.Builder
	if u.User != nil {
		b.WriteString(u.User.String())
		b.WriteString("@")
	}
	host := u.Host
	if host == "" {
		host = "localhost:3306"
	}
	fmt.Fprintf(&b, "tcp(%s)%s", host, u.Path)
	params := u.Query()
	if params.Get("parseTime") == "" {
		params.Set("parseTime", "true")
	}
	b.WriteString("?")
	b.WriteString(params.Encode())
	return b.String(), nil
}
