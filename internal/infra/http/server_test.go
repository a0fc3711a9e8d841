package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/mlte-team/mlte-sub000/internal/config"
	"github.com/mlte-team/mlte-sub000/internal/domain"
	"github.com/mlte-team/mlte-sub000/internal/infra/auth/token"
	"github.com/mlte-team/mlte-sub000/internal/infra/telemetry"
	"github.com/mlte-team/mlte-sub000/internal/query"
	"github.com/mlte-team/mlte-sub000/internal/state"
	"github.com/mlte-team/mlte-sub000/internal/usecase"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	t     *testing.T
	state *state.State
	srv   *Server
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()
	cfg := config.Defaults()
	cfg.JWTSecretKey = "test-secret"
	cfg.CatalogURIs = "local=memory://"
	cfg.RateLimitRequests = 0
	if mutate != nil {
		mutate(&cfg)
	}
	reg := prometheus.NewRegistry()
	st, err := state.New(context.Background(), cfg, state.Options{HashCost: bcrypt.MinCost, Metrics: telemetry.NewMetrics(reg)})
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if err := st.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return &testServer{t: t, state: st, srv: NewServer(st, ServerDeps{Gatherer: reg})}
}

func (ts *testServer) do(method, path, bearer string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			ts.t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) token(username, password string) string {
	ts.t.Helper()
	rec := ts.tokenRequest(url.Values{"grant_type": {"password"}, "username": {username}, "password": {password}})
	if rec.Code != http.StatusOK {
		ts.t.Fatalf("token for %s: %d %s", username, rec.Code, rec.Body.String())
	}
	var tok token.Token
	if err := json.Unmarshal(rec.Body.Bytes(), &tok); err != nil {
		ts.t.Fatalf("decode token: %v", err)
	}
	return tok.AccessToken
}

func (ts *testServer) tokenRequest(form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) adminToken() string {
	return ts.token(usecase.DefaultAdminUsername, config.Defaults().DefaultAdminPassword)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return out
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func TestModelCreationGrantsPolicy(t *testing.T) {
	ts := newTestServer(t, nil)
	admin := ts.adminToken()

	expectStatus(t, ts.do(http.MethodPost, "/api/model", admin, map[string]string{"identifier": "m1"}), http.StatusOK)
	expectStatus(t, ts.do(http.MethodGet, "/api/model/m1", admin, nil), http.StatusOK)

	rec := ts.do(http.MethodGet, "/api/model", admin, nil)
	expectStatus(t, rec, http.StatusOK)
	if ids := decode[[]string](t, rec); len(ids) != 1 || ids[0] != "m1" {
		t.Fatalf("expected [m1], got %v", ids)
	}

	rec = ts.do(http.MethodGet, "/api/groups/permissions", admin, nil)
	expectStatus(t, rec, http.StatusOK)
	perms := decode[[]domain.Permission](t, rec)
	found := map[domain.Method]bool{}
	for _, p := range perms {
		if p.ResourceType == domain.ResourceModel && p.ResourceID == "m1" {
			found[p.Method] = true
		}
	}
	for _, m := range domain.Methods() {
		if !found[m] {
			t.Fatalf("missing permission for %s on m1: %v", m, perms)
		}
	}
}

func TestReadOnlyUserCannotDeleteModel(t *testing.T) {
	ts := newTestServer(t, nil)
	admin := ts.adminToken()
	expectStatus(t, ts.do(http.MethodPost, "/api/model", admin, map[string]string{"identifier": "m1"}), http.StatusOK)
	expectStatus(t, ts.do(http.MethodPost, "/api/user", admin, map[string]any{"username": "bob", "password": "pw"}), http.StatusOK)

	rec := ts.do(http.MethodGet, "/api/user/bob", admin, nil)
	expectStatus(t, rec, http.StatusOK)
	bob := decode[domain.User](t, rec)
	bob.Groups = append(bob.Groups, domain.Group{Name: "read-model-m1"})
	expectStatus(t, ts.do(http.MethodPut, "/api/user", admin, bob), http.StatusOK)

	bobToken := ts.token("bob", "pw")
	expectStatus(t, ts.do(http.MethodGet, "/api/model/m1", bobToken, nil), http.StatusOK)
	expectStatus(t, ts.do(http.MethodDelete, "/api/model/m1", bobToken, nil), http.StatusForbidden)

	rec = ts.do(http.MethodGet, "/api/user/me/models", bobToken, nil)
	expectStatus(t, rec, http.StatusOK)
	if models := decode[[]string](t, rec); len(models) != 1 || models[0] != "m1" {
		t.Fatalf("expected bob to see m1, got %v", models)
	}
	rec = ts.do(http.MethodGet, "/api/user/me", bobToken, nil)
	expectStatus(t, rec, http.StatusOK)
	if me := decode[domain.User](t, rec); me.Username != "bob" || me.HashedPassword != "" {
		t.Fatalf("unexpected self view %+v", me)
	}
	expectStatus(t, ts.do(http.MethodGet, "/api/user/admin", bobToken, nil), http.StatusForbidden)
}

func TestNegotiationCardAndSuiteReferences(t *testing.T) {
	ts := newTestServer(t, nil)
	admin := ts.adminToken()
	base := "/api/model/m1/version/v1/artifact"

	card := &domain.NegotiationCard{SystemRequirements: []domain.QualityAttributeScenario{
		{Quality: "Inference Latency"},
		{Quality: "Accuracy", Identifier: "qas_id_005"},
	}}
	write := artifactWriteRequest{Artifact: domain.NewArtifact("card", card), Parents: true}
	expectStatus(t, ts.do(http.MethodPost, base, admin, write), http.StatusOK)

	rec := ts.do(http.MethodGet, base+"/card", admin, nil)
	expectStatus(t, rec, http.StatusOK)
	stored := decode[domain.Artifact](t, rec)
	got, err := domain.BodyAs[*domain.NegotiationCard](stored)
	if err != nil {
		t.Fatalf("body: %v", err)
	}
	if got.SystemRequirements[0].Identifier != "qas_id_006" || got.SystemRequirements[1].Identifier != "qas_id_005" {
		t.Fatalf("unexpected qas ids %+v", got.SystemRequirements)
	}

	suite := &domain.TestSuite{TestCases: []domain.TestCase{{Identifier: "tc1", QASList: []string{"qas_id_006"}}}}
	expectStatus(t, ts.do(http.MethodPost, base, admin, artifactWriteRequest{Artifact: domain.NewArtifact("suite", suite)}), http.StatusOK)

	suite.TestCases[0].QASList = []string{"qas_id_999"}
	rec = ts.do(http.MethodPost, base, admin, artifactWriteRequest{Artifact: domain.NewArtifact("suite", suite), Force: true})
	expectStatus(t, rec, http.StatusInternalServerError)
	if !strings.Contains(rec.Body.String(), "qas_id_999") {
		t.Fatalf("expected message to name the missing qas, got %s", rec.Body.String())
	}

	expectStatus(t, ts.do(http.MethodPost, base, admin, artifactWriteRequest{Artifact: domain.NewArtifact("card", card)}), http.StatusConflict)

	q := query.New(query.TypeFilter{ItemType: string(domain.ArtifactTypeTestSuite)})
	rec = ts.do(http.MethodPost, base+"/search", admin, q)
	expectStatus(t, rec, http.StatusOK)
	if found := decode[[]domain.Artifact](t, rec); len(found) != 1 || found[0].Header.Identifier != "suite" {
		t.Fatalf("unexpected search result %+v", found)
	}
}

func TestExpiredTokenIsRejected(t *testing.T) {
	ts := newTestServer(t, nil)
	now := time.Now()
	issuer, err := token.NewIssuer("test-secret", 0, token.WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	ts.state.TokenService = usecase.NewTokenService(ts.state.Users, issuer)

	admin := ts.adminToken()
	expectStatus(t, ts.do(http.MethodGet, "/api/model", admin, nil), http.StatusOK)

	now = now.Add(token.DefaultLifetime + time.Minute)
	rec := ts.do(http.MethodGet, "/api/model", admin, nil)
	expectStatus(t, rec, http.StatusUnauthorized)
	if got := rec.Header().Get("WWW-Authenticate"); got != `Bearer error="invalid_token"` {
		t.Fatalf("unexpected WWW-Authenticate %q", got)
	}
}

func TestCatalogSearchComposition(t *testing.T) {
	ts := newTestServer(t, nil)
	admin := ts.adminToken()
	for _, e := range []struct {
		id   string
		tags []string
	}{{"e1", []string{"t1", "t2"}}, {"e2", []string{"t1"}}} {
		entry := domain.CatalogEntry{Tags: e.tags, Code: "pass"}
		entry.Header.Identifier = e.id
		expectStatus(t, ts.do(http.MethodPost, "/api/catalog/local/entry", admin, entry), http.StatusOK)
	}

	search := func(f query.Filter) []string {
		rec := ts.do(http.MethodPost, "/api/catalogs/entry/search", admin, query.New(f))
		expectStatus(t, rec, http.StatusOK)
		ids := []string{}
		for _, e := range decode[[]domain.CatalogEntry](t, rec) {
			if e.Header.CatalogID == "local" {
				ids = append(ids, e.Header.Identifier)
			}
		}
		return ids
	}
	if got := search(query.And(query.IdentifierFilter{ID: "e1"}, query.TagFilter{Name: "tags", Value: "t2"})); len(got) != 1 || got[0] != "e1" {
		t.Fatalf("and: expected [e1], got %v", got)
	}
	if got := search(query.Or(query.IdentifierFilter{ID: "e1"}, query.IdentifierFilter{ID: "e2"})); len(got) != 2 {
		t.Fatalf("or: expected both entries, got %v", got)
	}

	rec := ts.do(http.MethodGet, "/api/catalogs", admin, nil)
	expectStatus(t, rec, http.StatusOK)
	if infos := decode[[]domain.CatalogInfo](t, rec); len(infos) != 2 {
		t.Fatalf("expected local and sample catalogs, got %+v", infos)
	}
	entry := domain.CatalogEntry{Code: "x"}
	entry.Header.Identifier = "blocked"
	expectStatus(t, ts.do(http.MethodPost, "/api/catalog/sample/entry", admin, entry), http.StatusForbidden)
}

func TestTokenGrantErrors(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.tokenRequest(url.Values{"grant_type": {"password"}, "username": {"admin"}, "password": {"nope"}})
	expectStatus(t, rec, http.StatusUnauthorized)
	if body := decode[map[string]string](t, rec); body["error"] != "invalid_grant" {
		t.Fatalf("expected invalid_grant, got %v", body)
	}
	rec = ts.tokenRequest(url.Values{"grant_type": {"client_credentials"}})
	expectStatus(t, rec, http.StatusBadRequest)
	if body := decode[map[string]string](t, rec); body["error"] != "unsupported_grant_type" {
		t.Fatalf("expected unsupported_grant_type, got %v", body)
	}
	expectStatus(t, ts.do(http.MethodGet, "/api/model", "", nil), http.StatusUnauthorized)
}

func TestTokenRateLimit(t *testing.T) {
	ts := newTestServer(t, func(cfg *config.Config) {
		cfg.RateLimitRequests = 2
		cfg.RateLimitWindowSeconds = 60
	})
	form := url.Values{"grant_type": {"password"}, "username": {"admin"}, "password": {"nope"}}
	for i := 0; i < 2; i++ {
		rec := ts.tokenRequest(form)
		if rec.Header().Get("RateLimit-Limit") != "2" {
			t.Fatalf("missing rate limit headers: %v", rec.Header())
		}
	}
	rec := ts.tokenRequest(form)
	expectStatus(t, rec, http.StatusTooManyRequests)
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
}

func TestTokenRateLimitIsPerAccountAndClearedOnSuccess(t *testing.T) {
	ts := newTestServer(t, func(cfg *config.Config) {
		cfg.RateLimitRequests = 2
		cfg.RateLimitWindowSeconds = 60
	})
	wrong := url.Values{"grant_type": {"password"}, "username": {"admin"}, "password": {"nope"}}
	right := url.Values{"grant_type": {"password"}, "username": {usecase.DefaultAdminUsername}, "password": {config.Defaults().DefaultAdminPassword}}

	ts.tokenRequest(wrong)
	expectStatus(t, ts.tokenRequest(right), http.StatusOK)
	for i := 0; i < 2; i++ {
		if rec := ts.tokenRequest(wrong); rec.Code == http.StatusTooManyRequests {
			t.Fatalf("attempt %d throttled after a successful grant", i)
		}
	}
	expectStatus(t, ts.tokenRequest(wrong), http.StatusTooManyRequests)

	other := url.Values{"grant_type": {"password"}, "username": {"bob"}, "password": {"nope"}}
	if rec := ts.tokenRequest(other); rec.Code == http.StatusTooManyRequests {
		t.Fatalf("another account from the same client was throttled")
	}
}

func TestCustomListAndHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	admin := ts.adminToken()

	rec := ts.do(http.MethodGet, "/api/custom_list/quality_attributes/entry", admin, nil)
	expectStatus(t, rec, http.StatusOK)
	if names := decode[[]string](t, rec); len(names) == 0 {
		t.Fatalf("expected seeded quality attributes")
	}
	entry := domain.CustomListEntry{Name: "Throughput", Description: "Requests per second.", Parent: "Resource Consumption"}
	expectStatus(t, ts.do(http.MethodPost, "/api/custom_list/quality_attributes/entry", admin, entry), http.StatusOK)
	expectStatus(t, ts.do(http.MethodGet, "/api/custom_list/quality_attributes/entry/Throughput", admin, nil), http.StatusOK)
	expectStatus(t, ts.do(http.MethodGet, "/api/custom_list/nope/entry", admin, nil), http.StatusNotFound)

	rec = ts.do(http.MethodGet, "/healthz", "", nil)
	expectStatus(t, rec, http.StatusOK)
	rec = ts.do(http.MethodGet, "/metrics", "", nil)
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "mlte_http_requests_total") {
		t.Fatalf("expected http metrics to be exported")
	}
}

func TestManualValidationRoute(t *testing.T) {
	ts := newTestServer(t, nil)
	admin := ts.adminToken()
	base := "/api/model/m1/version/v1/artifact"
	results := &domain.TestResults{
		TestSuiteID: "suite",
		TestSuite:   domain.TestSuite{TestCases: []domain.TestCase{{Identifier: "look"}}},
		Results:     map[string]domain.Result{"look": domain.Info("check the plots")},
	}
	expectStatus(t, ts.do(http.MethodPost, base, admin, artifactWriteRequest{Artifact: domain.NewArtifact("results", results), Parents: true}), http.StatusOK)

	rec := ts.do(http.MethodPost, base+"/results/result/look", admin, map[string]bool{"success": false})
	expectStatus(t, rec, http.StatusOK)
	if got := decode[domain.Result](t, rec); got.Kind != domain.ResultFailure {
		t.Fatalf("expected failure verdict, got %+v", got)
	}
	expectStatus(t, ts.do(http.MethodPost, base+"/results/result/look", admin, map[string]bool{"success": true}), http.StatusBadRequest)
}

func TestRunSuiteRoute(t *testing.T) {
	ts := newTestServer(t, nil)
	admin := ts.adminToken()
	base := "/api/model/m1/version/v1/artifact"
	suite := &domain.TestSuite{TestCases: []domain.TestCase{{
		Identifier: "rows",
		Validator:  &domain.ValidatorModel{BoolExp: "value < 3", Success: "small", Failure: "large"},
	}}}
	expectStatus(t, ts.do(http.MethodPost, base, admin, artifactWriteRequest{Artifact: domain.NewArtifact("suite", suite), Parents: true}), http.StatusOK)
	ev := domain.NewEvidence(domain.EvidenceMetadata{TestCaseID: "rows"}, "", domain.IntegerValue{Integer: 9})
	expectStatus(t, ts.do(http.MethodPost, base, admin, artifactWriteRequest{Artifact: domain.NewArtifact("rows-ev", ev)}), http.StatusOK)

	rec := ts.do(http.MethodPost, base+"/suite/run", admin, map[string]string{"results_id": "r1"})
	expectStatus(t, rec, http.StatusOK)
	stored := decode[domain.Artifact](t, rec)
	results, err := domain.BodyAs[*domain.TestResults](stored)
	if err != nil {
		t.Fatalf("body: %v", err)
	}
	if stored.Header.Identifier != "r1" || results.Results["rows"].Kind != domain.ResultFailure {
		t.Fatalf("unexpected run output %+v", stored)
	}
	expectStatus(t, ts.do(http.MethodPost, base+"/nope/run", admin, nil), http.StatusNotFound)
}

func TestCORSAdmitsConfiguredOrigins(t *testing.T) {
	ts := newTestServer(t, func(cfg *config.Config) {
		cfg.AllowedOrigins = "https://dash.example.org"
	})
	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/model", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "Authorization")
		rec := httptest.NewRecorder()
		ts.srv.Handler().ServeHTTP(rec, req)
		return rec
	}

	for _, origin := range []string{"http://localhost:8000", "https://dash.example.org"} {
		rec := preflight(origin)
		expectStatus(t, rec, http.StatusNoContent)
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != origin {
			t.Fatalf("origin %s: allow-origin = %q", origin, got)
		}
		if rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
			t.Fatalf("origin %s: credentials not allowed", origin)
		}
	}
	rec := preflight("https://evil.example.com")
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("unlisted origin was admitted: %v", rec.Header())
	}
}
