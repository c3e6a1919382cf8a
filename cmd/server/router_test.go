package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"complyhub/internal/catalog/service"
	jwttoken "complyhub/internal/jwt_token"
	"complyhub/internal/platform/config"
	id "complyhub/pkg/domain"
	"complyhub/pkg/testutil"
)

func TestRouter(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Server{JWTSigningKey: "test-signing-key", AdminToken: "admin-secret"}

	stores, closeStores, err := openStores(context.Background(), cfg, log)
	require.NoError(t, err)
	defer closeStores()
	catalog, err := service.New(stores, service.WithLogger(log))
	require.NoError(t, err)
	router := newRouter(cfg, log, catalog)

	token, err := jwttoken.NewJWTService(cfg.JWTSigningKey, tokenIssuer, tokenAudience).
		GenerateAccessToken(id.ActorID(uuid.New()), []string{"manager"}, time.Hour)
	require.NoError(t, err)

	testutil.Given(t, "the HTTP router", func(t *testing.T) {
		testutil.When(t, "listing standards without a token", func(t *testing.T) {
			rr := testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, "/standards", nil))

			testutil.Then(t, "it should respond unauthorized", func(t *testing.T) {
				assert.Equal(t, http.StatusUnauthorized, rr.Code)
				assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
			})
		})

		testutil.When(t, "creating a standard with a manager token", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/standards", strings.NewReader(`{"name":"ISO 27001","version":"2022"}`))
			req.Header.Set("Authorization", "Bearer "+token)
			rr := testutil.DoRequest(router, req)

			testutil.Then(t, "it should create the standard", func(t *testing.T) {
				assert.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
			})
		})

		testutil.When(t, "rebuilding a hierarchy", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/admin/hierarchies/standards/rebuild", nil)
			rr := testutil.DoRequest(router, req)

			testutil.Then(t, "the admin token is required", func(t *testing.T) {
				assert.Equal(t, http.StatusUnauthorized, rr.Code)
			})

			req = httptest.NewRequest(http.MethodPost, "/admin/hierarchies/standards/rebuild", nil)
			req.Header.Set("X-Admin-Token", cfg.AdminToken)
			rr = testutil.DoRequest(router, req)

			testutil.Then(t, "it runs as the system actor", func(t *testing.T) {
				assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
			})
		})

		testutil.When(t, "scraping metrics", func(t *testing.T) {
			rr := testutil.DoRequest(router, httptest.NewRequest(http.MethodGet, "/metrics", nil))

			testutil.Then(t, "it should expose request counters", func(t *testing.T) {
				assert.Equal(t, http.StatusOK, rr.Code)
				assert.Contains(t, rr.Body.String(), "complyhub_http_requests_total")
			})
		})
	})
}
