package httpapi

import (
	"github.com/gin-gonic/gin"
)

type userIDReq struct {
	UserID *int64 `json:"userId" binding:"required"`
}

type addUserReq struct {
	Name   string `json:"name"   binding:"required"`
	Avatar string `json:"avatar"`
	Type   string `json:"type"   binding:"omitempty,oneof=user bot"`
}

type updateUserReq struct {
	ID     *int64 `json:"id"     binding:"required"`
	Name   string `json:"name"   binding:"required"`
	Avatar string `json:"avatar"`
}

type deleteUserReq struct {
	ID *int64 `json:"id" binding:"required"`
}

func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.store.GetUsers(c.Request.Context())
	if err != nil {
		h.storeFailed(c, err, "")
		return
	}
	ok(c, users)
}

func (h *Handler) UserInfo(c *gin.Context) {
	var req userIDReq
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.store.GetUser(c.Request.Context(), *req.UserID)
	if err != nil {
		h.storeFailed(c, err, "user not found")
		return
	}
	ok(c, user)
}

func (h *Handler) AddUser(c *gin.Context) {
	var req addUserReq
	if !bindJSON(c, &req) {
		return
	}
	id, err := h.store.AddUser(c.Request.Context(), req.Name, req.Avatar, req.Type)
	if err != nil {
		h.storeFailed(c, err, "")
		return
	}
	ok(c, gin.H{"id": id})
}

func (h *Handler) UpdateUser(c *gin.Context) {
	var req updateUserReq
	if !bindJSON(c, &req) {
		return
	}
	if err := h.store.UpdateUser(c.Request.Context(), *req.ID, req.Name, req.Avatar); err != nil {
		h.storeFailed(c, err, "user not found")
		return
	}
	ok(c, nil)
}

func (h *Handler) DeleteUser(c *gin.Context) {
	var req deleteUserReq
	if !bindJSON(c, &req) {
		return
	}
	if err := h.store.DeleteUser(c.Request.Context(), *req.ID); err != nil {
		h.storeFailed(c, err, "user not found")
		return
	}
	ok(c, nil)
}
