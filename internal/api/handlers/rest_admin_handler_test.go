package handlers_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/Gomathi-Raji/campus-book-swap-main/internal/api/handlers"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/models"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/services"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/utils"
)

func setupAdminRouter(users *MockUserService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := handlers.NewRestAdminHandler(users)
	r := gin.New()
	r.GET("/v1/admin/users", h.ListUsers)
	r.DELETE("/v1/admin/users/:id", h.DeleteUser)
	return r
}

func TestRestAdminHandler_ListUsers(t *testing.T) {
	users := new(MockUserService)
	users.On("ListUsers", mock.Anything).Return([]models.User{
		{ID: utils.NewSixID(), Name: "Asha", Role: models.RoleUser},
	}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/admin/users", nil)
	setupAdminRouter(users).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Asha"`)
}

func TestRestAdminHandler_DeleteUser(t *testing.T) {
	users := new(MockUserService)
	target := utils.NewSixID()
	admin := utils.NewSixID()
	users.On("DeleteUserAndBooks", mock.Anything, target).Return(int64(3), nil)
	users.On("DeleteUserAndBooks", mock.Anything, admin).
		Return(int64(0), fmt.Errorf("%w: admin accounts cannot be deleted", services.ErrForbidden))
	r := setupAdminRouter(users)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("DELETE", "/v1/admin/users/"+target.String(), nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"User deleted"}`, w.Body.String())

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("DELETE", "/v1/admin/users/"+admin.String(), nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "admin accounts cannot be deleted", errorBody(t, w))
}
