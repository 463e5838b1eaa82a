package api

import (
	"net/http"

	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	// self-registration always creates customers; admins promote via the users API
	req.Role = ""

	user, err := h.users.Register(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

func (h *Handler) login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	session, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), sessionToken(c)); err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type passwordRequest struct {
	Password string `json:"password" binding:"required"`
}

func (h *Handler) changeOwnPassword(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	session := currentSession(c)
	affected, err := h.users.ChangePassword(c.Request.Context(), session.Username, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if affected == 0 {
		notFound(c, "User not found")
		return
	}

	c.Status(http.StatusNoContent)
}

// listUsers returns every user, or only those with ?role=
func (h *Handler) listUsers(c *gin.Context) {
	ctx := c.Request.Context()

	role := c.Query("role")
	if role == "" {
		users, err := h.users.ListUsers(ctx)
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"users": users, "count": len(users)})
		return
	}

	users, err := h.users.ListByRole(ctx, role)
	if err != nil {
		h.writeError(c, err)
		return
	}
	count, err := h.users.CountByRole(ctx, role)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users, "count": count})
}

func (h *Handler) listRoles(c *gin.Context) {
	roles, err := h.users.Roles(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"roles": roles})
}

func (h *Handler) roleStats(c *gin.Context) {
	stats, err := h.users.RoleStats(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

type roleRequest struct {
	Role string `json:"role" binding:"required"`
}

func (h *Handler) changeRole(c *gin.Context) {
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	affected, err := h.users.ChangeRole(c.Request.Context(), c.Param("username"), req.Role)
	h.writeUserUpdate(c, affected, err)
}

type emailRequest struct {
	Email string `json:"email"`
}

func (h *Handler) changeEmail(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	affected, err := h.users.ChangeEmail(c.Request.Context(), c.Param("username"), req.Email)
	h.writeUserUpdate(c, affected, err)
}

func (h *Handler) deleteUser(c *gin.Context) {
	affected, err := h.users.DeleteUser(c.Request.Context(), c.Param("username"))
	h.writeUserUpdate(c, affected, err)
}

func (h *Handler) writeUserUpdate(c *gin.Context, affected int64, err error) {
	if err != nil {
		h.writeError(c, err)
		return
	}
	if affected == 0 {
		notFound(c, "User not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": affected})
}
