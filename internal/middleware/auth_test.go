package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	iauth "github.com/dbelyakov/realvista/internal/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthTestRouter(t *testing.T) (*gin.Engine, *iauth.JWTService) {
	t.Helper()

	jwt, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "middleware-test-secret"})
	require.NoError(t, err)

	r := gin.New()
	r.GET("/protected", Auth(jwt), func(c *gin.Context) {
		id := c.GetString(CtxAdminIDKey)
		c.JSON(http.StatusOK, gin.H{"admin_id": id})
	})
	return r, jwt
}

func request(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAuthAcceptsValidBearerToken(t *testing.T) {
	r, jwt := newAuthTestRouter(t)

	token, err := jwt.GenerateToken("admin-42")
	require.NoError(t, err)

	rec := request(r, "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "admin-42")
}

func TestAuthSchemeIsCaseInsensitive(t *testing.T) {
	r, jwt := newAuthTestRouter(t)

	token, err := jwt.GenerateToken("admin-42")
	require.NoError(t, err)

	rec := request(r, "bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRejectsMissingOrMalformedHeader(t *testing.T) {
	r, _ := newAuthTestRouter(t)

	for _, header := range []string{"", "Bearer", "Bearer ", "Basic Zm9vOmJhcg==", "token abc"} {
		rec := request(r, header)
		require.Equal(t, http.StatusUnauthorized, rec.Code, "header=%q", header)
	}
}

func TestAuthRejectsTamperedToken(t *testing.T) {
	r, _ := newAuthTestRouter(t)

	other, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "another-secret"})
	require.NoError(t, err)
	token, err := other.GenerateToken("admin-42")
	require.NoError(t, err)

	rec := request(r, "Bearer "+token)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
}
