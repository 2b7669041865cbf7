package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Gomathi-Raji/campus-book-swap-main/internal/services"
)

// RestAdminHandler handles the /v1/admin endpoints. The admin check is done by middleware.
type RestAdminHandler struct {
	userService services.IUserService
}

// NewRestAdminHandler creates a new RestAdminHandler.
func NewRestAdminHandler(userService services.IUserService) *RestAdminHandler {
	return &RestAdminHandler{userService: userService}
}

// ListUsers handles GET /v1/admin/users
func (h *RestAdminHandler) ListUsers(c *gin.Context) {
	users, err := h.userService.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list users")
		return
	}
	c.JSON(http.StatusOK, users)
}

// DeleteUser handles DELETE /v1/admin/users/:id
func (h *RestAdminHandler) DeleteUser(c *gin.Context) {
	userID, ok := parseIDParam(c, "id", "user")
	if !ok {
		return
	}
	removed, err := h.userService.DeleteUserAndBooks(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "Failed to delete user")
		return
	}
	log.Printf("Admin deleted user %s and %d of their books", userID.String(), removed)
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}
