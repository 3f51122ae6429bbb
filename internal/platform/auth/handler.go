package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct{ svc AuthService }

// RegisterRoutes mounts the public endpoints.
func RegisterRoutes(r gin.IRoutes, svc AuthService) {
	h := &AuthHandler{svc: svc}
	r.POST("/login", h.Login)
	r.POST("/register", h.Register)
}

// RegisterAdminRoutes expects r to be behind RequireAuth.
func RegisterAdminRoutes(r gin.IRoutes, svc AuthService) {
	h := &AuthHandler{svc: svc}
	r.PATCH("/accounts/:id/role", RequireRole(RolePrimaryAdmin), h.ChangeRole)
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

type AccountResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// Login godoc
// @Summary  issue a bearer token
// @Tags     auth
// @Accept   json
// @Produce  json
// @Param    body body LoginRequest true "credentials"
// @Success  200 {object} map[string]string
// @Failure  401 {object} map[string]any
// @Router   /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortJSON(c, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid request")
		return
	}

	token, err := h.svc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		c.JSON(statusOf(err), errBody(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"message": "Login successful",
	})
}

// Register godoc
// @Summary  create a user account
// @Tags     auth
// @Accept   json
// @Produce  json
// @Param    body body RegisterRequest true "new account"
// @Success  201 {object} AccountResponse
// @Failure  400 {object} map[string]any
// @Failure  409 {object} map[string]any
// @Router   /register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortJSON(c, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid request")
		return
	}

	acct, err := h.svc.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		c.JSON(statusOf(err), errBody(err))
		return
	}

	c.JSON(http.StatusCreated, AccountResponse{ID: acct.ID, Username: acct.Username, Role: acct.Role})
}

func (h *AuthHandler) ChangeRole(c *gin.Context) {
	var req ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortJSON(c, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid request")
		return
	}
	caller, _ := PrincipalFrom(c)

	if err := h.svc.ChangeRole(c.Request.Context(), caller, c.Param("id"), Role(req.Role)); err != nil {
		c.JSON(statusOf(err), errBody(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "role changed"})
}

// ---------- helpers ----------

func abortJSON(c *gin.Context, status int, code, msg string) {
	c.JSON(status, gin.H{"error": gin.H{"code": code, "message": msg}})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, ErrBadCredentials), errors.Is(err, ErrDisabled):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInvalidUsername), errors.Is(err, ErrInvalidPassword), errors.Is(err, ErrInvalidRole):
		return http.StatusBadRequest
	case errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func errBody(err error) gin.H {
	code := "INTERNAL"
	msg := "internal error"
	switch statusOf(err) {
	case http.StatusUnauthorized:
		code, msg = "UNAUTHENTICATED", "username or password is incorrect"
	case http.StatusBadRequest:
		code, msg = "INVALID_ARGUMENT", err.Error()
	case http.StatusConflict:
		code, msg = "CONFLICT", "username already taken"
	case http.StatusNotFound:
		code, msg = "NOT_FOUND", "account not found"
	case http.StatusForbidden:
		code, msg = "FORBIDDEN", err.Error()
	}
	return gin.H{"error": gin.H{"code": code, "message": msg}}
}
