package handler

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kidcanvas/api/internal/auth"
	"github.com/kidcanvas/api/internal/middleware"
	"github.com/kidcanvas/api/internal/model"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

type AuthHandler struct {
	db           *gorm.DB
	codec        *auth.Codec
	logger       *zap.SugaredLogger
	dev          bool
	googleConfig *oauth2.Config
	frontendURL  string
}

func NewAuthHandler(db *gorm.DB, codec *auth.Codec, logger *zap.SugaredLogger, dev bool, googleConfig *oauth2.Config, frontendURL string) *AuthHandler {
	return &AuthHandler{
		db:           db,
		codec:        codec,
		logger:       logger,
		dev:          dev,
		googleConfig: googleConfig,
		frontendURL:  frontendURL,
	}
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=1"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"omitempty,oneof=CHILD PARENT ADMIN"`
	ParentID *int64 `json:"parentId"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	role := req.Role
	if role == "" {
		role = model.RoleChild
	}

	if req.ParentID != nil {
		var parent model.User
		if err := h.db.First(&parent, *req.ParentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusBadRequest, gin.H{"errors": []FieldError{{Field: "parentId", Message: "referenced user does not exist"}}})
				return
			}
			respondInternal(c, h.logger, h.dev, "failed to register user", err)
			return
		}
	}

	var existing model.User
	err := h.db.Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []FieldError{{Field: "email", Message: "is already registered"}}})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		respondInternal(c, h.logger, h.dev, "failed to register user", err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondInternal(c, h.logger, h.dev, "failed to register user", err)
		return
	}

	user := model.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
		ParentID:     req.ParentID,
	}
	if err := h.db.Create(&user).Error; err != nil {
		respondInternal(c, h.logger, h.dev, "failed to register user", err)
		return
	}

	token, err := h.codec.Mint(user.ID, user.Role)
	if err != nil {
		respondInternal(c, h.logger, h.dev, "failed to issue token", err)
		return
	}

	c.JSON(http.StatusCreated, TokenResponse{User: &user, Token: token})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	// Unknown email and wrong password produce the same response so
	// login cannot be used to probe which emails exist.
	var user model.User
	err := h.db.Where("email = ?", req.Email).First(&user).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			respondInternal(c, h.logger, h.dev, "failed to log in", err)
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := h.codec.Mint(user.ID, user.Role)
	if err != nil {
		respondInternal(c, h.logger, h.dev, "failed to issue token", err)
		return
	}

	c.JSON(http.StatusOK, TokenResponse{User: &user, Token: token})
}

// Me introspects the presented token.
func (h *AuthHandler) Me(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":  true,
		"userId": principal.UserID,
		"role":   principal.Role,
	})
}

// GoogleAuth redirects to the Google OAuth consent page.
func (h *AuthHandler) GoogleAuth(c *gin.Context) {
	if h.googleConfig == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "google sign-in is not configured"})
		return
	}

	state, err := generateState()
	if err != nil {
		respondInternal(c, h.logger, h.dev, "failed to start google sign-in", err)
		return
	}
	c.SetCookie("oauth_state", state, 600, "/", "", false, true)

	url := h.googleConfig.AuthCodeURL(state, oauth2.AccessTypeOffline)
	c.Redirect(http.StatusTemporaryRedirect, url)
}

// GoogleCallback exchanges the OAuth code and finds or creates the account.
// OAuth accounts carry no password hash, so a password login against them
// fails as ordinary invalid credentials.
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	if h.googleConfig == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "google sign-in is not configured"})
		return
	}

	state := c.Query("state")
	savedState, err := c.Cookie("oauth_state")
	if err != nil || state != savedState {
		c.Redirect(http.StatusTemporaryRedirect, h.frontendURL+"?error=invalid_state")
		return
	}
	c.SetCookie("oauth_state", "", -1, "/", "", false, true)

	code := c.Query("code")
	if code == "" {
		c.Redirect(http.StatusTemporaryRedirect, h.frontendURL+"?error=no_code")
		return
	}

	oauthToken, err := h.googleConfig.Exchange(c.Request.Context(), code)
	if err != nil {
		h.logger.Errorw("failed to exchange oauth code", "error", err)
		c.Redirect(http.StatusTemporaryRedirect, h.frontendURL+"?error=exchange_failed")
		return
	}

	info, err := auth.GetGoogleUserInfo(c.Request.Context(), h.googleConfig, oauthToken)
	if err != nil {
		h.logger.Errorw("failed to fetch google user info", "error", err)
		c.Redirect(http.StatusTemporaryRedirect, h.frontendURL+"?error=user_info_failed")
		return
	}

	var user model.User
	result := h.db.Where("provider = ? AND provider_id = ?", "google", info.ID).First(&user)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		user = model.User{
			Name:       info.Name,
			Email:      info.Email,
			Role:       model.RoleParent,
			Provider:   "google",
			ProviderID: info.ID,
		}
		if err := h.db.Create(&user).Error; err != nil {
			h.logger.Errorw("failed to create oauth user", "error", err)
			c.Redirect(http.StatusTemporaryRedirect, h.frontendURL+"?error=create_user_failed")
			return
		}
	} else if result.Error != nil {
		h.logger.Errorw("failed to look up oauth user", "error", result.Error)
		c.Redirect(http.StatusTemporaryRedirect, h.frontendURL+"?error=db_error")
		return
	}

	token, err := h.codec.Mint(user.ID, user.Role)
	if err != nil {
		h.logger.Errorw("failed to issue token", "error", err)
		c.Redirect(http.StatusTemporaryRedirect, h.frontendURL+"?error=token_failed")
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, h.frontendURL+"?token="+token)
}

// generateState draws the anti-CSRF state for the OAuth flow. A failing
// entropy source must abort the flow rather than hand out a guessable state.
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate oauth state: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
