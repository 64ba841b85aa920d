package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stijnblommerde/restaurant-menu/internal/middleware"
)

func (h HandlerSet) Me(c *gin.Context) {
	user, ok := middleware.PrincipalFrom(c).User()
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(user)})
}

type profileRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	AboutMe  string `json:"aboutMe"`
}

func (h HandlerSet) UpdateProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, _ := middleware.PrincipalFrom(c).User()

	if err := h.accounts.UpdateProfile(c.Request.Context(), user, req.Name, req.Location, req.AboutMe); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profile update failed"})
		return
	}

	c.Status(http.StatusNoContent)
}

const maxAvatarSize = 2 << 20 // 2 MiB

func (h HandlerSet) UploadAvatar(c *gin.Context) {
	user, _ := middleware.PrincipalFrom(c).User()

	file, header, err := c.Request.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "avatar file required"})
		return
	}
	defer file.Close()

	if header.Size > maxAvatarSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "avatar too large"})
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType != "image/png" && contentType != "image/jpeg" {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "avatar must be png or jpeg"})
		return
	}

	key, err := h.avatars.Put(c.Request.Context(), user.ID, file, header.Size, contentType)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", user.ID).Msg("avatar upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "avatar upload failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"key": key})
}

func (h HandlerSet) AdminListUsers(c *gin.Context) {
	users, err := h.accounts.ListUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list users failed"})
		return
	}

	resp := make([]userResponse, 0, len(users))
	for _, user := range users {
		resp = append(resp, toUserResponse(user))
	}

	c.JSON(http.StatusOK, gin.H{"users": resp})
}
