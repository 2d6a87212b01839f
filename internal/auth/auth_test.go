package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndParse(t *testing.T) {
	m := NewJWTManager("shared-secret")

	token, err := m.Sign("student-1", RoleStudent, time.Hour)
	require.NoError(t, err)

	claims, err := m.ParseAndValidate(token)
	require.NoError(t, err)
	assert.Equal(t, "student-1", claims.Subject)
	assert.Equal(t, RoleStudent, claims.Role)
}

func TestParseRejectsWrongSecretAndExpired(t *testing.T) {
	issuer := NewJWTManager("other")
	token, err := issuer.Sign("student-1", RoleStudent, time.Hour)
	require.NoError(t, err)

	_, err = NewJWTManager("shared-secret").ParseAndValidate(token)
	assert.Error(t, err)

	m := NewJWTManager("shared-secret")
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := m.Sign("student-1", RoleStudent, time.Hour)
	require.NoError(t, err)
	_, err = NewJWTManager("shared-secret").ParseAndValidate(expired)
	assert.Error(t, err)
}

func TestParseRejectsNoneAlgorithm(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "student-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewJWTManager("shared-secret").ParseAndValidate(signed)
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewJWTManager("shared-secret")

	r := gin.New()
	r.GET("/me", AuthRequired(m), func(c *gin.Context) {
		c.String(http.StatusOK, GetUserID(c)+"/"+GetUserRole(c))
	})
	r.POST("/slots", AuthRequired(m), RequireRole(RoleLibrarian), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	t.Run("Missing header", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), `"error":"auth_error"`)
	})

	t.Run("Valid token", func(t *testing.T) {
		token, _ := m.Sign("student-1", RoleStudent, time.Minute)
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "student-1/student", w.Body.String())
	})

	t.Run("Wrong role", func(t *testing.T) {
		token, _ := m.Sign("student-1", RoleStudent, time.Minute)
		req := httptest.NewRequest(http.MethodPost, "/slots", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Librarian role", func(t *testing.T) {
		token, _ := m.Sign("lib-1", RoleLibrarian, time.Minute)
		req := httptest.NewRequest(http.MethodPost, "/slots", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusCreated, w.Code)
	})
}
