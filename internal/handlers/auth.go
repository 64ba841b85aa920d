package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stijnblommerde/restaurant-menu/internal/middleware"
	"github.com/stijnblommerde/restaurant-menu/internal/models"
	"github.com/stijnblommerde/restaurant-menu/internal/repository"
	"github.com/stijnblommerde/restaurant-menu/internal/security"
	"github.com/stijnblommerde/restaurant-menu/internal/service"
)

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type userResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Confirmed bool   `json:"confirmed"`
	Role      string `json:"role,omitempty"`
	Name      string `json:"name,omitempty"`
	Location  string `json:"location,omitempty"`
	AboutMe   string `json:"aboutMe,omitempty"`
}

func toUserResponse(user models.User) userResponse {
	resp := userResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Confirmed: user.Confirmed,
		Name:      user.Name,
		Location:  user.Location,
		AboutMe:   user.AboutMe,
	}
	if user.Role != nil {
		resp.Role = user.Role.Name
	}
	return resp
}

func (h HandlerSet) RegisterAccount(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.accounts.Register(c.Request.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, service.ErrEmailTaken) || errors.Is(err, service.ErrUsernameTaken) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user":           toUserResponse(result.User),
		"mailDispatched": result.MailDispatched,
	})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"accessToken": result.AccessToken,
		"user":        toUserResponse(result.User),
	})
}

type tokenRequest struct {
	Token string `json:"token" binding:"required"`
}

func (h HandlerSet) Confirm(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, _ := middleware.PrincipalFrom(c).User()

	if err := h.accounts.ConfirmEmail(c.Request.Context(), user, req.Token); err != nil {
		c.JSON(tokenErrorStatus(err), gin.H{"error": tokenErrorMessage(err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"confirmed": true})
}

func (h HandlerSet) ResendConfirmation(c *gin.Context) {
	user, _ := middleware.PrincipalFrom(c).User()

	dispatched, err := h.accounts.ResendConfirmation(c.Request.Context(), user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "resend failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"mailDispatched": dispatched})
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ForgotPassword always reports the same outcome to the caller; whether
// the address is registered is only visible in the server log.
func (h HandlerSet) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.accounts.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			h.log.Info().Str("email", req.Email).Msg("password reset requested for unknown email")
		} else {
			h.log.Error().Err(err).Msg("password reset request failed")
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "If that address is registered, a reset link has been sent.",
	})
}

type resetPasswordRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

func (h HandlerSet) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.accounts.ResetPassword(c.Request.Context(), req.Email, req.Token, req.Password); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "reset link is invalid"})
			return
		}
		c.JSON(tokenErrorStatus(err), gin.H{"error": tokenErrorMessage(err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password has been reset."})
}

type updatePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

func (h HandlerSet) UpdatePassword(c *gin.Context) {
	var req updatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, _ := middleware.PrincipalFrom(c).User()

	if err := h.accounts.ChangePassword(c.Request.Context(), user, req.OldPassword, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid password"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "password update failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password has been updated."})
}

type changeEmailRequest struct {
	NewEmail string `json:"newEmail" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h HandlerSet) RequestEmailChange(c *gin.Context) {
	var req changeEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, _ := middleware.PrincipalFrom(c).User()

	dispatched, err := h.accounts.RequestEmailChange(c.Request.Context(), user, req.Password, req.NewEmail)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid password"})
		case errors.Is(err, service.ErrEmailTaken):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"mailDispatched": dispatched})
}

func (h HandlerSet) ConfirmEmailChange(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, _ := middleware.PrincipalFrom(c).User()

	if err := h.accounts.ChangeEmail(c.Request.Context(), user, req.Token); err != nil {
		c.JSON(tokenErrorStatus(err), gin.H{"error": tokenErrorMessage(err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Primary email has been changed."})
}

// tokenErrorStatus maps the account error taxonomy to transport codes.
func tokenErrorStatus(err error) int {
	switch {
	case errors.Is(err, security.ErrTokenExpired),
		errors.Is(err, security.ErrTokenInvalid),
		errors.Is(err, service.ErrSubjectMismatch):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// tokenErrorMessage keeps expiry distinguishable so clients can offer a
// fresh link.
func tokenErrorMessage(err error) string {
	switch {
	case errors.Is(err, security.ErrTokenExpired):
		return "link has expired, request a new one"
	case errors.Is(err, security.ErrTokenInvalid), errors.Is(err, service.ErrSubjectMismatch):
		return "link is invalid"
	default:
		return "operation failed"
	}
}
