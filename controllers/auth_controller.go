package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zidanindratama/be-gunasmash/models"
	"github.com/zidanindratama/be-gunasmash/utils"
)

// AuthController handles registration, login, token refresh, and profile.
type AuthController struct {
	db *gorm.DB
}

// NewAuthController creates a new controller instance.
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

type registerRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=128"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         *models.User `json:"user"`
}

// Register creates a new member account. Self-registration always yields the
// MEMBER role; admins are promoted through the user management endpoints.
func (a *AuthController) Register(ctx *gin.Context) {
	var req registerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid registration payload")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	var count int64
	if err := a.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to check email")
		return
	}
	if count > 0 {
		utils.Error(ctx, http.StatusConflict, 40910, "email already registered")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to hash password")
		return
	}

	user := models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleMember,
	}
	if err := a.db.Create(&user).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50012, "failed to create user")
		return
	}

	access, refresh, err := utils.TokenPair(user.ID, user.Role)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50013, "failed to issue tokens")
		return
	}

	utils.Success(ctx, tokenResponse{AccessToken: access, RefreshToken: refresh, User: &user})
}

// Login verifies credentials and issues a token pair. The same error is
// returned for an unknown email and a wrong password.
func (a *AuthController) Login(ctx *gin.Context) {
	var req loginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40011, "invalid login payload")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	err := a.db.Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !utils.CheckPassword(user.PasswordHash, req.Password)) {
		utils.Error(ctx, http.StatusUnauthorized, 40111, "invalid email or password")
		return
	}
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50014, "failed to load user")
		return
	}

	access, refresh, err := utils.TokenPair(user.ID, user.Role)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50013, "failed to issue tokens")
		return
	}

	utils.Success(ctx, tokenResponse{AccessToken: access, RefreshToken: refresh, User: &user})
}

// Refresh exchanges a valid refresh token for a fresh token pair. The used
// refresh token is blacklisted so it can only be redeemed once.
func (a *AuthController) Refresh(ctx *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40012, "refresh_token is required")
		return
	}

	if utils.IsTokenBlacklisted(req.RefreshToken) {
		utils.Error(ctx, http.StatusUnauthorized, 40112, "refresh token revoked")
		return
	}

	claims, err := utils.ParseToken(req.RefreshToken)
	if err != nil || claims.TokenType != utils.TokenRefresh {
		utils.Error(ctx, http.StatusUnauthorized, 40113, "invalid refresh token")
		return
	}

	var user models.User
	if err := a.db.First(&user, claims.UserID).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40114, "account no longer exists")
		return
	}

	access, refresh, err := utils.TokenPair(user.ID, user.Role)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50013, "failed to issue tokens")
		return
	}

	if claims.ExpiresAt != nil {
		utils.BlacklistToken(req.RefreshToken, claims.ExpiresAt.Time)
	}

	utils.Success(ctx, tokenResponse{AccessToken: access, RefreshToken: refresh, User: &user})
}

// Logout blacklists the presented access token until its natural expiry.
func (a *AuthController) Logout(ctx *gin.Context) {
	authHeader := ctx.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		utils.Error(ctx, http.StatusBadRequest, 40013, "missing bearer token")
		return
	}
	token := strings.TrimSpace(parts[1])

	claims, err := utils.ParseToken(token)
	if err == nil && claims.ExpiresAt != nil {
		utils.BlacklistToken(token, claims.ExpiresAt.Time)
	} else {
		utils.BlacklistToken(token, time.Now().Add(24*time.Hour))
	}

	utils.Success(ctx, gin.H{"logged_out": true})
}

// Me returns the authenticated user's profile.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
		return
	}

	utils.Success(ctx, user)
}

// UpdateProfile lets the authenticated user change their name, avatar, or password.
func (a *AuthController) UpdateProfile(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req struct {
		Name      string `json:"name" binding:"omitempty,min=2,max=128"`
		AvatarURL string `json:"avatar_url" binding:"omitempty,url,max=512"`
		Password  string `json:"password" binding:"omitempty,min=6,max=72"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40014, "invalid profile payload")
		return
	}

	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
		return
	}

	if req.Name != "" {
		user.Name = strings.TrimSpace(req.Name)
	}
	if req.AvatarURL != "" {
		user.AvatarURL = req.AvatarURL
	}
	if req.Password != "" {
		hash, err := utils.HashPassword(req.Password)
		if err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to hash password")
			return
		}
		user.PasswordHash = hash
	}

	if err := a.db.Save(&user).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50015, "failed to update profile")
		return
	}

	utils.Success(ctx, user)
}
