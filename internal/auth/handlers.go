package auth

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/shelf/internal/config"
)

// AuthController serves the local-mode login, logout and API token
// endpoints.
type AuthController struct {
	service  *Service
	sessions *SessionManager
	limiter  *RateLimiter
}

func NewAuthController(service *Service, sessions *SessionManager, cfg config.Auth) *AuthController {
	return &AuthController{
		service:  service,
		sessions: sessions,
		limiter:  NewRateLimiter(cfg.MaxLoginAttempts, 15*time.Minute, cfg.LockoutDuration),
	}
}

// RegisterRoutes mounts the endpoints under group (normally /api/auth).
func (ac *AuthController) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/login", ac.Login)
	group.POST("/logout", ac.Logout)
	group.POST("/token", ac.GenerateToken)
	group.DELETE("/token", ac.RevokeToken)
}

type loginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /api/auth/login with a username or email.
func (ac *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "login and password are required"})
		return
	}
	ip := c.ClientIP()

	if allowed, retryAfter := ac.limiter.Allow(ip, req.Login); !allowed {
		c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many login attempts"})
		return
	}

	user, err := ac.service.Authenticate(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrAccountLocked):
			c.JSON(http.StatusLocked, gin.H{"error": "account is locked, try again later"})
		case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrInvalidPassword):
			ac.limiter.RecordFailure(ip, req.Login)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
		default:
			log.WithError(err).Error("Login failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		}
		return
	}
	ac.limiter.RecordSuccess(ip, req.Login)

	if err := ac.sessions.CreateSession(c.Request, user); err != nil {
		log.WithError(err).WithField("user_id", user.ID).Error("Failed to create session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}

	log.WithField("user_id", user.ID).Info("User logged in")
	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{"id": user.ID, "username": user.Username, "email": user.Email},
	})
}

// Logout handles POST /api/auth/logout.
func (ac *AuthController) Logout(c *gin.Context) {
	if err := ac.sessions.DestroySession(c.Request); err != nil {
		log.WithError(err).Warn("Failed to destroy session")
	}
	c.Status(http.StatusNoContent)
}

// GenerateToken handles POST /api/auth/token. The plaintext token is only
// ever returned here.
func (ac *AuthController) GenerateToken(c *gin.Context) {
	id := GetIdentity(c)
	if id.IsZero() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": ErrAuthRequired.Error()})
		return
	}

	token, err := ac.service.GenerateToken(c.Request.Context(), id.UserID)
	if err != nil {
		log.WithError(err).WithField("user_id", id.UserID).Error("Failed to generate token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token":   token,
		"message": "Store this token securely - it will not be shown again",
	})
}

// RevokeToken handles DELETE /api/auth/token.
func (ac *AuthController) RevokeToken(c *gin.Context) {
	id := GetIdentity(c)
	if id.IsZero() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": ErrAuthRequired.Error()})
		return
	}

	if err := ac.service.RevokeToken(c.Request.Context(), id.UserID); err != nil {
		log.WithError(err).WithField("user_id", id.UserID).Error("Failed to revoke token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke token"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Me handles GET /api/auth/me in every mode.
func Me(c *gin.Context) {
	id := GetIdentity(c)
	c.JSON(http.StatusOK, gin.H{
		"user_id":  id.UserID,
		"username": id.Username,
		"method":   id.Method,
	})
}
