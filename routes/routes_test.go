package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"transfer-appeal-api/config"
	"transfer-appeal-api/middleware"
	"transfer-appeal-api/services"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenFor(t *testing.T, role services.Role) string {
	t.Helper()
	claims := middleware.Claims{
		UserID: "u-1",
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(config.App.JWTSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func TestRouteAccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	previous := config.App
	config.App.JWTSecret = "routes-test-secret"
	t.Cleanup(func() { config.App = previous })

	router := gin.New()
	SetupRoutes(router)

	cases := []struct {
		name   string
		method string
		path   string
		role   services.Role
		status int
	}{
		{"labels are public", http.MethodGet, "/api/v1/labels", "", http.StatusOK},
		{"me requires a token", http.MethodGet, "/api/v1/me/spec", "", http.StatusUnauthorized},
		{"me rejects reviewers", http.MethodGet, "/api/v1/me/spec", services.RoleDistrictExpert, http.StatusForbidden},
		{"reviews reject applicants", http.MethodGet, "/api/v1/reviews", services.RoleApplicant, http.StatusForbidden},
		{"transition rejects applicants", http.MethodPost, "/api/v1/specs/1/transition", services.RoleApplicant, http.StatusForbidden},
		{"statistics reject destination experts", http.MethodGet, "/api/v1/statistics", services.RoleDestinationExpert, http.StatusForbidden},
		{"admin rejects province experts", http.MethodGet, "/api/v1/admin/specs", services.RoleProvinceExpert, http.StatusForbidden},
		{"admin districts reject applicants", http.MethodPut, "/api/v1/admin/districts", services.RoleApplicant, http.StatusForbidden},
		{"unknown route", http.MethodGet, "/api/v1/nope", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.role != "" {
				req.Header.Set("Authorization", tokenFor(t, tc.role))
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
		})
	}
}
