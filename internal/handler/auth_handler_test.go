package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendance-ease-api/internal/models"
	appErrors "github.com/noah-isme/attendance-ease-api/pkg/errors"
)

func TestAuthHandlerLogin(t *testing.T) {
	svc := &fakeAuthService{res: &models.LoginResponse{AccessToken: "token"}}
	handler := NewAuthHandler(svc)

	c, w := newGinContext(http.MethodPost, "/auth/login", jsonBody(models.LoginRequest{Email: "a@b.io", Password: "secret"}))
	handler.Login(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a@b.io", svc.loginReq.Email)
	assert.NotEmpty(t, svc.loginReq.IP)
	assert.Contains(t, string(decodeEnvelope(w).Data), `"access_token":"token"`)
}

func TestAuthHandlerLoginRejectsMalformedBody(t *testing.T) {
	handler := NewAuthHandler(&fakeAuthService{})

	c, w := newGinContext(http.MethodPost, "/auth/login", []byte("{"))
	handler.Login(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decodeEnvelope(w).Error.Code)
}

func TestAuthHandlerStudentLoginThrottled(t *testing.T) {
	svc := &fakeAuthService{err: appErrors.ErrTooManyAttempts}
	handler := NewAuthHandler(svc)

	c, w := newGinContext(http.MethodPost, "/auth/student/login", jsonBody(models.StudentLoginRequest{UID: "AbCd1234", Password: "x"}))
	handler.StudentLogin(c)

	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "AbCd1234", svc.studentReq.UID)
	assert.Equal(t, appErrors.ErrTooManyAttempts.Code, decodeEnvelope(w).Error.Code)
}

func TestAuthHandlerMeRequiresClaims(t *testing.T) {
	handler := NewAuthHandler(&fakeAuthService{})

	c, w := newGinContext(http.MethodGet, "/auth/me", nil)
	handler.Me(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newGinContext(http.MethodGet, "/auth/me", nil)
	withClaims(c, &models.JWTClaims{UserID: "s1", Role: models.RoleStudent})
	handler.Me(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decodeEnvelope(w).Data), `"role":"STUDENT"`)
}
