package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mlte-team/mlte-sub000/internal/domain"
	"github.com/mlte-team/mlte-sub000/internal/store"
	"github.com/mlte-team/mlte-sub000/internal/store/storetest"
)

func openSQLite(t *testing.T) *Store {
	t.Helper()
	uri, err := store.ParseURI("sqlite:///" + filepath.Join(t.TempDir(), "mlte.db"))
	if err != nil {
		t.Fatalf("parse uri: %v", err)
	}
	s, err := Open(context.Background(), uri)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Backend { return openSQLite(t) }, storetest.Options{})
}

func TestInitIsIdempotent(t *testing.T) {
	s := openSQLite(t)
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("second init: %v", err)
	}
	var count int64
	if err := s.DB.Model(&ArtifactTypeRow{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if int(count) != len(domain.ArtifactTypes()) {
		t.Fatalf("expected %d artifact types, got %d", len(domain.ArtifactTypes()), count)
	}
}

func TestDialectorRejectsOracle(t *testing.T) {
	uri, err := store.ParseURI("oracle://scott:tiger@db:1521/orcl")
	if err != nil {
		t.Fatalf("parse uri: %v", err)
	}
	if _, err := Dialector(uri); domain.KindOf(err) != domain.ErrBadRequest {
		t.Fatalf("expected bad request, got %v", err)
	}
}

func TestMySQLDSN(t *testing.T) {
	dsn, err := mysqlDSN("root:pw@db:3307/mlte")
	if err != nil {
		t.Fatalf("dsn: %v", err)
	}
	if dsn != "root:pw@tcp(db:3307)/mlte?parseTime=true" {
		t.Fatalf("unexpected dsn %q", dsn)
	}
}
