package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/attendance-ease-api/internal/models"
	"github.com/noah-isme/attendance-ease-api/internal/service"
	appErrors "github.com/noah-isme/attendance-ease-api/pkg/errors"
)

type stubValidator struct {
	claims *models.JWTClaims
}

func (s stubValidator) ValidateToken(ctx context.Context, token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return s.claims, nil
}

func newRouter(claims *models.JWTClaims, guards ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append([]gin.HandlerFunc{JWT(stubValidator{claims: claims})}, guards...)
	handlers = append(handlers, func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/protected", handlers...)
	return r
}

func do(r *gin.Engine, auth string) int {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec.Code
}

func TestJWT(t *testing.T) {
	r := newRouter(&models.JWTClaims{UserID: "u1", Role: models.RoleAdmin})

	assert.Equal(t, http.StatusUnauthorized, do(r, ""))
	assert.Equal(t, http.StatusUnauthorized, do(r, "Token good"))
	assert.Equal(t, http.StatusUnauthorized, do(r, "Bearer bad"))
	assert.Equal(t, http.StatusOK, do(r, "Bearer good"))
}

func TestRequireRoles(t *testing.T) {
	admin := newRouter(&models.JWTClaims{Role: models.RoleAdmin}, RequireRoles(models.RoleAdmin))
	educator := newRouter(&models.JWTClaims{Role: models.RoleEducator}, RequireRoles(models.RoleAdmin))

	assert.Equal(t, http.StatusOK, do(admin, "Bearer good"))
	assert.Equal(t, http.StatusForbidden, do(educator, "Bearer good"))
}

func TestRequirePermission(t *testing.T) {
	cases := []struct {
		name   string
		claims *models.JWTClaims
		want   int
	}{
		{"admin", &models.JWTClaims{Role: models.RoleAdmin}, http.StatusOK},
		{"educator with flag", &models.JWTClaims{Role: models.RoleEducator, Permissions: models.Permissions{CanViewRecords: true}}, http.StatusOK},
		{"educator without flag", &models.JWTClaims{Role: models.RoleEducator, Permissions: models.Permissions{CanMarkAttendance: true}}, http.StatusForbidden},
		{"student", &models.JWTClaims{Role: models.RoleStudent, Permissions: models.AllPermissions()}, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRouter(tc.claims, RequirePermission(models.PermissionViewRecords))
			assert.Equal(t, tc.want, do(r, "Bearer good"))
		})
	}
}

func TestMetricsMiddlewareRecordsRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics))
	r.GET("/courses/:id", func(c *gin.Context) {
		time.Sleep(time.Millisecond)
		c.Status(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/courses/cs101", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	scrape := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, scrape.Body.String(), `http_requests_total{method="GET",path="/courses/:id",status="204"} 1`)
}
