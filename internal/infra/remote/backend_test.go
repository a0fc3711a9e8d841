package remote_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mlte-team/mlte-sub000/internal/config"
	"github.com/mlte-team/mlte-sub000/internal/domain"
	mltehttp "github.com/mlte-team/mlte-sub000/internal/infra/http"
	"github.com/mlte-team/mlte-sub000/internal/infra/remote"
	"github.com/mlte-team/mlte-sub000/internal/state"
	"github.com/mlte-team/mlte-sub000/internal/store"
	"github.com/mlte-team/mlte-sub000/internal/store/storetest"

	"golang.org/x/crypto/bcrypt"
)

// peer starts an in-process server backed by memory stores and returns its
// address with admin credentials.
func peer(t *testing.T) string {
	t.Helper()
	cfg := config.Defaults()
	cfg.JWTSecretKey = "peer-secret"
	cfg.CatalogURIs = "default=memory://"
	cfg.OTelServiceName = ""
	ctx := context.Background()
	st, err := state.New(ctx, cfg, state.Options{HashCost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if err := st.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	srv := httptest.NewServer(mltehttp.NewServer(st, mltehttp.ServerDeps{}).Handler())
	t.Cleanup(func() {
		srv.Close()
		_ = st.Close()
	})
	return "http://" + usernamePassword(cfg) + "@" + strings.TrimPrefix(srv.URL, "http://")
}

func usernamePassword(cfg config.Config) string {
	return "admin:" + cfg.DefaultAdminPassword
}

func open(t *testing.T, raw string) store.Backend {
	t.Helper()
	uri, err := store.ParseURI(raw)
	if err != nil {
		t.Fatalf("parse uri: %v", err)
	}
	b, err := remote.New(uri)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return b
}

func TestContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Backend { return open(t, peer(t)) }, storetest.Options{SkipUsers: true, Seeded: true})
}

func TestOpenRejectsBadCredentials(t *testing.T) {
	raw := peer(t)
	raw = strings.Replace(raw, "admin:", "admin:wrong", 1)
	_, err := open(t, raw).Open(context.Background())
	if domain.KindOf(err) != domain.ErrUnauthenticated {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
}

func TestNewRequiresHost(t *testing.T) {
	uri, err := store.ParseURI("http://")
	if err != nil {
		t.Fatalf("parse uri: %v", err)
	}
	if _, err := remote.New(uri); domain.KindOf(err) != domain.ErrBadRequest {
		t.Fatalf("expected bad request, got %v", err)
	}
}
