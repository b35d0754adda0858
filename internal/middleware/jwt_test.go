package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examflow/editorial/internal/auth"
	"github.com/examflow/editorial/internal/models"
)

func newRouter(svc *auth.JWTService, roles ...models.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := []gin.HandlerFunc{JWT(svc)}
	if len(roles) > 0 {
		handlers = append(handlers, RequireRole(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		a := MustActor(c)
		c.JSON(http.StatusOK, gin.H{"id": a.ID, "role": a.Role})
	})
	r.GET("/me", handlers...)
	return r
}

func do(r *gin.Engine, target, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTSetsActor(t *testing.T) {
	svc := auth.NewJWTService("secret", 1)
	token, err := svc.Generate(&models.User{ID: 5, Role: models.RoleTypesetter})
	require.NoError(t, err)

	w := do(newRouter(svc), "/me", "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":5,"role":"typesetter"}`, w.Body.String())

	w = do(newRouter(svc), "/me?token="+token, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJWTRejects(t *testing.T) {
	svc := auth.NewJWTService("secret", 1)
	r := newRouter(svc)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "Token abc").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "Bearer garbage").Code)
}

func TestRequireRole(t *testing.T) {
	svc := auth.NewJWTService("secret", 1)
	author, err := svc.Generate(&models.User{ID: 1, Role: models.RoleAuthor})
	require.NoError(t, err)
	admin, err := svc.Generate(&models.User{ID: 2, Role: models.RoleAdmin})
	require.NoError(t, err)

	r := newRouter(svc, models.RoleAdmin)
	assert.Equal(t, http.StatusForbidden, do(r, "/me", "Bearer "+author).Code)
	assert.Equal(t, http.StatusOK, do(r, "/me", "Bearer "+admin).Code)
}
