package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "welfare-workers/internal/common/errors"
	"welfare-workers/internal/common/logger"
	"welfare-workers/internal/eligibility"
	"welfare-workers/internal/models"
)

type fakeCatalogue struct {
	schemes    []eligibility.Scheme
	err        error
	lastFilter models.SchemeFilter
	lastQuery  string
	workers    []int
}

func (f *fakeCatalogue) Recommend(ctx context.Context, p eligibility.Profile, workers int) (eligibility.Recommendations, error) {
	f.workers = append(f.workers, workers)
	if f.err != nil {
		return eligibility.Recommendations{}, f.err
	}
	results, err := eligibility.RankParallel(ctx, p, f.schemes, workers)
	if err != nil {
		return eligibility.Recommendations{}, err
	}
	return eligibility.NewRecommendations(results), nil
}

func (f *fakeCatalogue) Search(_ context.Context, q string) ([]*models.Scheme, error) {
	f.lastQuery = q
	return []*models.Scheme{{ID: "s1", Name: "PM Kisan"}}, f.err
}

func (f *fakeCatalogue) Filter(_ context.Context, filter models.SchemeFilter) ([]*models.Scheme, error) {
	f.lastFilter = filter
	return []*models.Scheme{}, f.err
}

func newTestServer(t *testing.T, c Catalogue, checks map[string]Check) *Server {
	t.Helper()
	srv, err := NewServer(Options{RateLimitRPS: 1000, RateLimitBurst: 1000}, c, checks, logger.NewTestLogger(t))
	require.NoError(t, err)
	return srv
}

func do(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// ==========================
// Eligibility
// ==========================

func TestEligibility_Success(t *testing.T) {
	catalogue := &fakeCatalogue{schemes: []eligibility.Scheme{
		{ID: "old-age", Name: "Old Age Pension", Rules: &eligibility.RuleSet{MinAge: eligibility.Int(60)}},
		{ID: "kisan", Name: "PM Kisan", Rules: &eligibility.RuleSet{
			MinAge:             eligibility.Int(18),
			MaxIncome:          eligibility.Float(300000),
			OccupationRequired: []string{"Farmer"},
			StateSpecific:      []string{"Maharashtra", "Gujarat"},
		}},
	}}
	srv := newTestServer(t, catalogue, nil)

	rec := do(srv, http.MethodPost, "/api/v1/eligibility",
		`{"age": 30, "income": 150000, "occupation": "Farmer", "state": "Maharashtra"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var got eligibility.Recommendations
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, 2, got.Count)
	assert.Equal(t, "kisan", got.Recommendations[0].SchemeID)
	assert.Equal(t, 100, got.Recommendations[0].Score)
	assert.Equal(t, eligibility.NotEligible, got.Recommendations[1].Status)
}

func TestEligibility_ClientErrors(t *testing.T) {
	srv := newTestServer(t, &fakeCatalogue{}, nil)

	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"whitespace body", "  \n\t "},
		{"null body", "null"},
		{"not json", "{age: 30"},
		{"array instead of object", "[1, 2]"},
		{"wrong field type", `{"age": "thirty"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(srv, http.MethodPost, "/api/v1/eligibility", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Code)
		})
	}
}

func TestEligibility_EmptyObjectIsAccepted(t *testing.T) {
	srv := newTestServer(t, &fakeCatalogue{schemes: []eligibility.Scheme{{ID: "open", Name: "Open"}}}, nil)
	rec := do(srv, http.MethodPost, "/api/v1/eligibility", `{}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEligibility_FractionalAge(t *testing.T) {
	catalogue := &fakeCatalogue{schemes: []eligibility.Scheme{
		{ID: "old-age", Name: "Old Age Pension", Rules: &eligibility.RuleSet{MinAge: eligibility.Int(60)}},
	}}
	srv := newTestServer(t, catalogue, nil)

	for body, want := range map[string]eligibility.Status{
		`{"age": 59.5}`: eligibility.NotEligible,
		`{"age": 60.5}`: eligibility.FullyEligible,
	} {
		rec := do(srv, http.MethodPost, "/api/v1/eligibility", body)
		require.Equal(t, http.StatusOK, rec.Code, body)

		var got eligibility.Recommendations
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Len(t, got.Recommendations, 1)
		assert.Equal(t, want, got.Recommendations[0].Status, body)
	}
}

func TestEligibility_ServerError(t *testing.T) {
	srv := newTestServer(t, &fakeCatalogue{err: apperrors.NewStorageError("list schemes", errors.New("db down"))}, nil)

	rec := do(srv, http.MethodPost, "/api/v1/eligibility", `{"age": 30}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "STORAGE_ERROR", body.Code)
	assert.Equal(t, "Server Error", body.Message)
	assert.NotContains(t, rec.Body.String(), "db down")
}

// ==========================
// Schemes, health, readiness
// ==========================

func TestSchemes(t *testing.T) {
	catalogue := &fakeCatalogue{}
	srv := newTestServer(t, catalogue, nil)

	rec := do(srv, http.MethodGet, "/api/v1/schemes?q=kisan", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "kisan", catalogue.lastQuery)

	rec = do(srv, http.MethodGet, "/api/v1/schemes?category=education&state=bihar", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.SchemeFilter{Category: "education", State: "bihar"}, catalogue.lastFilter)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestHealthAndReady(t *testing.T) {
	checks := map[string]Check{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	}
	srv := newTestServer(t, &fakeCatalogue{}, checks)

	rec := do(srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(srv, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"checks":{"postgres":"ok","redis":"connection refused"}}`, rec.Body.String())

	rec = do(srv, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

// ==========================
// Rate limiting
// ==========================

func TestRateLimit(t *testing.T) {
	srv, err := NewServer(Options{RateLimitRPS: 0.001, RateLimitBurst: 2},
		&fakeCatalogue{}, nil, logger.NewTestLogger(t))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		rec := do(srv, http.MethodGet, "/api/v1/schemes", "")
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	rec := do(srv, http.MethodGet, "/api/v1/schemes", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// another client has its own bucket
	req := httptest.NewRequest(http.MethodGet, "/api/v1/schemes", nil)
	req.RemoteAddr = "10.1.1.1:4000"
	other := httptest.NewRecorder()
	srv.Handler().ServeHTTP(other, req)
	assert.Equal(t, http.StatusOK, other.Code)

	// health is never limited
	assert.Equal(t, http.StatusOK, do(srv, http.MethodGet, "/health", "").Code)
}

func TestRateLimiter_Sweep(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.limiter("1.1.1.1")
	now = now.Add(2 * time.Minute)
	rl.limiter("2.2.2.2")
	now = now.Add(2 * time.Minute)

	assert.Equal(t, 1, rl.Sweep())
	assert.Len(t, rl.visitors, 1)
}

func TestEligibility_RankWorkersBounded(t *testing.T) {
	tests := []struct {
		name       string
		configured int
		want       int
	}{
		{"default", 0, DefaultRankWorkers},
		{"configured", 3, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &fakeCatalogue{}
			srv, err := NewServer(Options{RankWorkers: tt.configured}, c, nil, logger.NewTestLogger(t))
			require.NoError(t, err)

			rec := do(srv, http.MethodPost, "/api/v1/eligibility", `{"age":30}`)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, []int{tt.want}, c.workers)
		})
	}
}

func doFrom(srv *Server, remoteAddr, forwardedFor string) int {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/schemes", nil)
	req.RemoteAddr = remoteAddr
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimit_IgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	srv, err := NewServer(Options{RateLimitRPS: 0.001, RateLimitBurst: 1},
		&fakeCatalogue{}, nil, logger.NewTestLogger(t))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, doFrom(srv, "203.0.113.7:5000", "198.51.100.1"))
	// a new spoofed address does not buy a new bucket
	assert.Equal(t, http.StatusTooManyRequests, doFrom(srv, "203.0.113.7:5001", "198.51.100.2"))
}

func TestRateLimit_TrustedProxyForwardsClient(t *testing.T) {
	srv, err := NewServer(Options{RateLimitRPS: 0.001, RateLimitBurst: 1, TrustedProxies: []string{"10.0.0.0/8"}},
		&fakeCatalogue{}, nil, logger.NewTestLogger(t))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, doFrom(srv, "10.0.0.5:80", "198.51.100.1"))
	assert.Equal(t, http.StatusOK, doFrom(srv, "10.0.0.5:80", "198.51.100.2, 10.0.0.9"))
	assert.Equal(t, http.StatusTooManyRequests, doFrom(srv, "10.0.0.6:80", "198.51.100.1"))

	// a client-supplied leftmost hop cannot override the proxy's view
	assert.Equal(t, http.StatusTooManyRequests, doFrom(srv, "10.0.0.5:80", "192.0.2.50, 198.51.100.1"))
}

func TestNewServer_InvalidTrustedProxy(t *testing.T) {
	_, err := NewServer(Options{TrustedProxies: []string{"not-an-ip"}}, &fakeCatalogue{}, nil, logger.NewTestLogger(t))
	assert.Error(t, err)
}
