package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nextdigitalzone/jobdesk/pkg/logctx"
	"github.com/nextdigitalzone/jobdesk/pkg/ratelimit"
	"github.com/nextdigitalzone/jobdesk/pkg/types"
)

const secret = "test-jwt-secret"

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := zap.NewNop().Sugar()
	r := gin.New()
	r.Use(TraceMiddleware(), RequestLoggerMiddleware(log), AccessLogMiddleware(log))
	chain := append([]gin.HandlerFunc{AuthMiddleware(secret, log)}, handlers...)
	chain = append(chain, func(c *gin.Context) {
		a, _ := ActorFrom(c)
		uid, _ := c.Request.Context().Value(logctx.KeyUserID).(string)
		c.JSON(http.StatusOK, gin.H{"id": a.ID, "role": a.Role, "ctx_user_id": uid})
	})
	r.GET("/me", chain...)
	return r
}

func get(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	tok, err := SignToken(secret, types.Actor{ID: "customer-1", Role: types.RoleCustomer}, time.Hour)
	require.NoError(t, err)

	w := get(newRouter(), tok)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"id":"customer-1","role":"customer","ctx_user_id":"customer-1"}`, w.Body.String())
	require.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	r := newRouter()

	w := get(r, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "missing bearer token")

	other, err := SignToken("another-secret", types.Actor{ID: "customer-1", Role: types.RoleCustomer}, time.Hour)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, get(r, other).Code)

	expired, err := SignToken(secret, types.Actor{ID: "customer-1", Role: types.RoleCustomer}, -time.Minute)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, get(r, expired).Code)

	system, err := SignToken(secret, types.SystemActor(), time.Hour)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, get(r, system).Code)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Role: types.RoleAdmin, StandardClaims: jwt.StandardClaims{Subject: "admin-1"}})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, get(r, unsigned).Code)
}

func TestRequireRole(t *testing.T) {
	r := newRouter(RequireRole(types.RoleAdmin))

	admin, err := SignToken(secret, types.Actor{ID: "admin-1", Role: types.RoleAdmin}, time.Hour)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, get(r, admin).Code)

	artisan, err := SignToken(secret, types.Actor{ID: "artisan-1", Role: types.RoleArtisan}, time.Hour)
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, get(r, artisan).Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l, err := ratelimit.New("submission", "2-M")
	require.NoError(t, err)
	r := gin.New()
	r.POST("/identity", RateLimitMiddleware(l, zap.NewNop().Sugar()), func(c *gin.Context) { c.Status(http.StatusOK) })

	post := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/identity", nil)
		req.RemoteAddr = ip + ":5555"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	require.Equal(t, http.StatusOK, post("10.0.0.1"))
	require.Equal(t, http.StatusOK, post("10.0.0.1"))
	require.Equal(t, http.StatusTooManyRequests, post("10.0.0.1"))
	require.Equal(t, http.StatusOK, post("10.0.0.2"))
}
