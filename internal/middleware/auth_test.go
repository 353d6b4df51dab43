package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omnidocs-go/pkg/token"
)

func authTestRouter(jwtManager *token.JWTManager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", AuthMiddleware(jwtManager), func(c *gin.Context) {
		claims := MustClaims(c)
		c.JSON(http.StatusOK, gin.H{"tenantId": claims.TenantID, "userId": claims.UserID})
	})
	return r
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	jwtManager := token.NewJWTManager("test-secret", 1)
	tok, err := jwtManager.GenerateToken(3, 9, "acme")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	authTestRouter(jwtManager).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"tenantId":3`)
}

func TestAuthMiddlewareRejectsMissingOrBadToken(t *testing.T) {
	jwtManager := token.NewJWTManager("test-secret", 1)
	router := authTestRouter(jwtManager)

	// 缺少授权头
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// 非 Bearer 格式
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Basic abc")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// 其他密钥签发的 token
	other := token.NewJWTManager("other-secret", 1)
	tok, err := other.GenerateToken(3, 9, "acme")
	require.NoError(t, err)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
