package jwt

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/user"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const (
	TokenTypeAccess = "access"
	TokenTypeSSE    = "sse"

	sseTokenTTL = 5 * time.Minute
)

// Service issues and verifies the tokens carrying the caller's actor claims.
// Access tokens are normally minted by the identity service sharing the
// secret; GenerateAccessToken exists for operators and tests.
type Service interface {
	GenerateAccessToken(actor user.Actor) (token string, expiresAt int64, err error)
	GenerateSSEToken(actor user.Actor) (token string, expiresIn int, err error)
	ValidateSSEToken(tokenString string) (user.Actor, error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	accessTokenExpirationTime time.Duration
	tokenAuth                 *jwtauth.JWTAuth
	now                       func() time.Time
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string, accessTokenExpirationTime string) (Service, error) {
	expiration, err := time.ParseDuration(accessTokenExpirationTime)
	if err != nil {
		return nil, fmt.Errorf("invalid access token expiration %q: %w", accessTokenExpirationTime, err)
	}
	return &JWTService{
		accessTokenExpirationTime: expiration,
		tokenAuth:                 jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
		now:                       time.Now,
	}, nil
}

func (j *JWTService) GenerateAccessToken(actor user.Actor) (token string, expiresAt int64, err error) {
	expiresAt = j.now().Add(j.accessTokenExpirationTime).Unix()
	token, err = j.encode(actor, TokenTypeAccess, expiresAt)
	return token, expiresAt, err
}

// GenerateSSEToken generates a short-lived token for SSE connections, which
// cannot send an Authorization header.
func (j *JWTService) GenerateSSEToken(actor user.Actor) (token string, expiresIn int, err error) {
	expiresAt := j.now().Add(sseTokenTTL).Unix()
	token, err = j.encode(actor, TokenTypeSSE, expiresAt)
	if err != nil {
		return "", 0, err
	}
	return token, int(sseTokenTTL.Seconds()), nil
}

// ValidateSSEToken validates an SSE token and returns its actor.
func (j *JWTService) ValidateSSEToken(tokenString string) (user.Actor, error) {
	token, err := j.tokenAuth.Decode(tokenString)
	if err != nil {
		return user.Actor{}, user.ErrInvalidToken
	}

	claims, err := token.AsMap(context.Background())
	if err != nil {
		return user.Actor{}, user.ErrInvalidToken
	}
	if tokenType, _ := claims["type"].(string); tokenType != TokenTypeSSE {
		return user.Actor{}, user.ErrInvalidToken
	}

	return ActorFromClaims(claims)
}

func (j *JWTService) encode(actor user.Actor, tokenType string, expiresAt int64) (string, error) {
	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"user_id":     actor.UserID,
		"business_id": actor.BusinessID,
		"role":        string(actor.Role),
		"type":        tokenType,
		"exp":         expiresAt,
	})
	return tokenString, err
}

// ActorFromClaims builds the actor from verified token claims.
func ActorFromClaims(claims map[string]interface{}) (user.Actor, error) {
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return user.Actor{}, user.ErrUserIDRequired
	}
	businessID, _ := claims["business_id"].(string)
	if businessID == "" {
		return user.Actor{}, user.ErrBusinessIDRequired
	}
	role, _ := claims["role"].(string)
	if role == "" {
		return user.Actor{}, user.ErrInvalidToken
	}
	return user.Actor{UserID: userID, BusinessID: businessID, Role: user.Role(role)}, nil
}
