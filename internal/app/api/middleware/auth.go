package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"go.uber.org/zap"

	"github.com/nextdigitalzone/jobdesk/pkg/logctx"
	"github.com/nextdigitalzone/jobdesk/pkg/response"
	"github.com/nextdigitalzone/jobdesk/pkg/types"
)

const keyActor = "actor"

// Claims is the bearer token payload: sub is the actor id.
type Claims struct {
	Role types.Role `json:"role"`
	jwt.StandardClaims
}

func (c *Claims) Valid() error {
	if err := c.StandardClaims.Valid(); err != nil {
		return err
	}
	if c.Subject == "" {
		return errors.New("token has no subject")
	}
	if !c.Role.IsValid() || c.Role == types.RoleSystem {
		return fmt.Errorf("token role %q is not allowed", c.Role)
	}
	return nil
}

// SignToken issues an HS256 token for actor. Used by the token command and tests.
func SignToken(secret string, actor types.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Role: actor.Role,
		StandardClaims: jwt.StandardClaims{
			Subject:   actor.ID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken verifies signature, expiry and claims.
func ParseToken(secret, token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// AuthMiddleware resolves the bearer token into an actor and stores it on
// gin.Context and the request context, enriching the request logger.
func AuthMiddleware(secret string, base *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorMsg(response.APIResponseCodeUnauthenticated, "missing bearer token"))
			return
		}
		claims, err := ParseToken(secret, strings.TrimSpace(parts[1]))
		if err != nil {
			logctx.FromGin(c, base).Infow("auth_rejected", "error", err.Error())
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorMsg(response.APIResponseCodeUnauthenticated, "invalid token"))
			return
		}

		actor := types.Actor{ID: claims.Subject, Role: claims.Role}
		c.Set(keyActor, actor)
		c.Set(logctx.KeyUserID, actor.ID)
		c.Set(logctx.KeyRole, string(actor.Role))

		reqLogger := logctx.FromGin(c, base).With("user_id", actor.ID, "role", actor.Role)
		c.Set(logctx.KeyLogger, reqLogger)
		ctx := context.WithValue(c.Request.Context(), logctx.KeyUserID, actor.ID)
		ctx = context.WithValue(ctx, logctx.KeyRole, string(actor.Role))
		c.Request = c.Request.WithContext(logctx.WithLogger(ctx, reqLogger))

		c.Next()
	}
}

// ActorFrom returns the authenticated actor set by AuthMiddleware.
func ActorFrom(c *gin.Context) (types.Actor, bool) {
	v, ok := c.Get(keyActor)
	if !ok {
		return types.Actor{}, false
	}
	actor, ok := v.(types.Actor)
	return actor, ok
}

// RequireRole rejects actors outside roles before the handler runs.
func RequireRole(roles ...types.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorMsg(response.APIResponseCodeUnauthenticated, "missing bearer token"))
			return
		}
		for _, r := range roles {
			if actor.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, response.ErrorMsg(response.APIResponseCodeForbidden, "role not allowed"))
	}
}
