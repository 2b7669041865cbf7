package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Gomathi-Raji/campus-book-swap-main/internal/auth"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/config"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/models"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/services"
)

// RestAuthHandler handles signup, login and the current-user lookup.
type RestAuthHandler struct {
	cfg         *config.Config
	userService services.IUserService
}

// NewRestAuthHandler creates a new RestAuthHandler.
func NewRestAuthHandler(cfg *config.Config, userService services.IUserService) *RestAuthHandler {
	return &RestAuthHandler{cfg: cfg, userService: userService}
}

func (h *RestAuthHandler) issueToken(c *gin.Context, status int, user *models.User) {
	token, err := auth.GenerateJWT(user.ID, user.Role, h.cfg.JwtSecret, h.cfg.JwtTTL)
	if err != nil {
		respondError(c, err, "Failed to issue token")
		return
	}
	c.JSON(status, gin.H{"user": user, "token": token})
}

// Signup handles POST /v1/auth/signup
func (h *RestAuthHandler) Signup(c *gin.Context) {
	var input models.SignupInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	user, err := h.userService.Signup(c.Request.Context(), input)
	if err != nil {
		respondError(c, err, "Failed to create account")
		return
	}
	h.issueToken(c, http.StatusCreated, user)
}

// Login handles POST /v1/auth/login
func (h *RestAuthHandler) Login(c *gin.Context) {
	var input models.LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	user, err := h.userService.Login(c.Request.Context(), input)
	if err != nil {
		respondError(c, err, "Failed to log in")
		return
	}
	h.issueToken(c, http.StatusOK, user)
}

// Me handles GET /v1/auth/me
func (h *RestAuthHandler) Me(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	user, err := h.userService.FindByID(c.Request.Context(), caller.ID)
	if err != nil {
		respondError(c, err, "Failed to load account")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
