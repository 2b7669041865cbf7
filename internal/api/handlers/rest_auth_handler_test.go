package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Gomathi-Raji/campus-book-swap-main/internal/api/handlers"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/auth"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/config"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/models"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/services"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/utils"
)

var authTestConfig = &config.Config{JwtSecret: "handler-secret", JwtTTL: time.Hour}

func setupAuthRouter(users *MockUserService, caller *models.Caller) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := handlers.NewRestAuthHandler(authTestConfig, users)
	r := gin.New()
	r.POST("/v1/auth/signup", h.Signup)
	r.POST("/v1/auth/login", h.Login)
	r.GET("/v1/auth/me", withCaller(caller), h.Me)
	return r
}

func postJSON(r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

type authResponse struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

func TestRestAuthHandler_Signup(t *testing.T) {
	users := new(MockUserService)
	input := models.SignupInput{Name: "Asha", Email: "asha@campus.edu", Password: "secret123"}
	created := &models.User{ID: utils.NewSixID(), Name: "Asha", Email: "asha@campus.edu", PasswordHash: "hash", Role: models.RoleUser}
	users.On("Signup", mock.Anything, input).Return(created, nil)

	w := postJSON(setupAuthRouter(users, nil), "/v1/auth/signup", input)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotContains(t, w.Body.String(), `"password"`)
	var resp authResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, created.ID, resp.User.ID)

	claims, err := auth.ValidateJWT(resp.Token, authTestConfig.JwtSecret)
	require.NoError(t, err)
	assert.Equal(t, created.ID.String(), claims.UserID)
	assert.Equal(t, models.RoleUser, claims.Role)
}

func TestRestAuthHandler_Signup_Errors(t *testing.T) {
	users := new(MockUserService)
	taken := models.SignupInput{Name: "B", Email: "taken@campus.edu", Password: "secret123"}
	short := models.SignupInput{Name: "C", Email: "c@campus.edu", Password: "abc"}
	users.On("Signup", mock.Anything, taken).Return(nil, services.ErrEmailExists)
	users.On("Signup", mock.Anything, short).
		Return(nil, fmt.Errorf("%w: password must be at least 8 characters", services.ErrValidation))
	r := setupAuthRouter(users, nil)

	w := postJSON(r, "/v1/auth/signup", taken)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "email already registered", errorBody(t, w))

	w = postJSON(r, "/v1/auth/signup", short)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "password must be at least 8 characters", errorBody(t, w))
}

func TestRestAuthHandler_Login(t *testing.T) {
	users := new(MockUserService)
	good := models.LoginInput{Email: "asha@campus.edu", Password: "secret123"}
	bad := models.LoginInput{Email: "asha@campus.edu", Password: "wrong"}
	user := &models.User{ID: utils.NewSixID(), Name: "Asha", Role: models.RoleAdmin}
	users.On("Login", mock.Anything, good).Return(user, nil)
	users.On("Login", mock.Anything, bad).Return(nil, services.ErrInvalidCredentials)
	r := setupAuthRouter(users, nil)

	w := postJSON(r, "/v1/auth/login", good)
	require.Equal(t, http.StatusOK, w.Code)
	var resp authResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	claims, err := auth.ValidateJWT(resp.Token, authTestConfig.JwtSecret)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	w = postJSON(r, "/v1/auth/login", bad)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid email or password", errorBody(t, w))
}

func TestRestAuthHandler_Me(t *testing.T) {
	users := new(MockUserService)
	user := &models.User{ID: utils.NewSixID(), Name: "Asha", Email: "asha@campus.edu", Role: models.RoleUser}
	users.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	caller := models.CallerFromUser(user)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/auth/me", nil)
	setupAuthRouter(users, &caller).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"email":"asha@campus.edu"`)
	users.AssertExpectations(t)
}
