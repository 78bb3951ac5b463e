package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"randomcall/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	jwt "github.com/golang-jwt/jwt/v5"
)

const (
	tokenIssuer = "randomcall-service" // Видавець
	userKey     = "match_user"
)

var errUnauthorized = errors.New("authorization token missing or invalid")

// Claims is the payload of an access token.
type Claims struct {
	UserID   string        `json:"user_id"`
	Username string        `json:"username"`
	Gender   models.Gender `json:"gender,omitempty"`
	jwt.RegisteredClaims
}

// generateJWT підписує токен для користувача
func (h *Handler) generateJWT(user models.MatchUser) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(h.auth.TokenTTL)
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		Gender:   user.Gender,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(h.auth.Secret)
	return signed, expiresAt, err
}

func (h *Handler) parseToken(tokenString string) (models.MatchUser, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return h.auth.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return models.MatchUser{}, err
	}
	if claims.UserID == "" {
		return models.MatchUser{}, errUnauthorized
	}
	return models.MatchUser{ID: claims.UserID, Username: claims.Username, Gender: claims.Gender}, nil
}

type tokenRequest struct {
	UserID   string `json:"user_id" binding:"omitempty,max=64"`
	Username string `json:"username" binding:"required,max=64"`
	Gender   string `json:"gender" binding:"omitempty,max=16"`
}

// IssueToken видає JWT. Без user_id генерується новий анонімний UUID.
func (h *Handler) IssueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBadRequest(c, err)
		return
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		anonUUID, err := uuid.NewRandom()
		if err != nil {
			h.respondError(c, err)
			return
		}
		userID = anonUUID.String()
	}
	user := models.MatchUser{
		ID:       userID,
		Username: strings.TrimSpace(req.Username),
		Gender:   models.ParseGender(req.Gender),
	}

	token, expiresAt, err := h.generateJWT(user)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"user_id":    user.ID,
		"username":   user.Username,
		"gender":     user.Gender,
		"expires_at": expiresAt.UTC(),
	})
}

// tokenFromRequest reads a Bearer header, or the token query parameter that
// browsers have to use for websockets.
func tokenFromRequest(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return c.Query("token")
}

func (h *Handler) authenticate(c *gin.Context) (models.MatchUser, bool) {
	tokenString := tokenFromRequest(c)
	if tokenString == "" {
		h.respondUnauthorized(c)
		return models.MatchUser{}, false
	}
	user, err := h.parseToken(tokenString)
	if err != nil {
		h.respondUnauthorized(c)
		return models.MatchUser{}, false
	}
	return user, true
}

// AuthMiddleware requires a valid token and stores its user in the context.
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := h.authenticate(c)
		if !ok {
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

func currentUser(c *gin.Context) models.MatchUser {
	user, _ := c.MustGet(userKey).(models.MatchUser)
	return user
}
