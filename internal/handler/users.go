package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"academy/internal/identity"
)

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) createUser(c *gin.Context) {
	var req newUserRequest
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	u, err := h.users.Register(c.Request.Context(), req.toNewUser())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (h *Handler) getUser(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	u, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

type updateUserRequest struct {
	Username *string `json:"username" binding:"omitempty,min=1,max=80"`
	Email    *string `json:"email" binding:"omitempty,min=1,max=120"`
	FullName *string `json:"full_name" binding:"omitempty,max=120"`
	Role     *string `json:"role"`
	Active   *bool   `json:"active"`
	Password *string `json:"password"`
}

func (h *Handler) updateUser(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	var req updateUserRequest
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	ch := identity.Changes{
		Username: req.Username,
		Email:    req.Email,
		FullName: req.FullName,
		Active:   req.Active,
		Password: req.Password,
	}
	if req.Role != nil {
		role := identity.Role(*req.Role)
		ch.Role = &role
	}
	u, err := h.users.Update(c.Request.Context(), id, ch)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) deleteUser(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.users.Delete(c.Request.Context(), currentUserID(c), id); err != nil {
		h.fail(c, err)
		return
	}
	noContent(c)
}
