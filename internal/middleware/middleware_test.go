package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freesideatlanta/member-portal/internal/models"
	"github.com/freesideatlanta/member-portal/internal/service"
	appErrors "github.com/freesideatlanta/member-portal/pkg/errors"
)

type fakeValidator struct {
	claims *models.JWTClaims
	token  string
}

func (f fakeValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != f.token {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return f.claims, nil
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		claims, _ := c.Get(ContextUserKey)
		c.JSON(http.StatusOK, claims)
	})
	r.GET("/persons/:id", handlers...)
	return r
}

func serve(r http.Handler, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestJWT(t *testing.T) {
	validator := fakeValidator{token: "good", claims: &models.JWTClaims{UserID: "u1", Username: "ada"}}
	r := newRouter(JWT(validator))

	assert.Equal(t, http.StatusUnauthorized, serve(r, "/persons/u1", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "/persons/u1", "Token good").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "/persons/u1", "Bearer bad").Code)

	rec := serve(r, "/persons/u1", "bearer good")
	require.Equal(t, http.StatusOK, rec.Code)
	var claims models.JWTClaims
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &claims))
	assert.Equal(t, "u1", claims.UserID)
}

func TestRequireAdmin(t *testing.T) {
	member := fakeValidator{token: "t", claims: &models.JWTClaims{UserID: "u1"}}
	admin := fakeValidator{token: "t", claims: &models.JWTClaims{UserID: "a1", Admin: true}}

	assert.Equal(t, http.StatusForbidden, serve(newRouter(JWT(member), RequireAdmin()), "/persons/u1", "Bearer t").Code)
	assert.Equal(t, http.StatusOK, serve(newRouter(JWT(admin), RequireAdmin()), "/persons/u1", "Bearer t").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(newRouter(RequireAdmin()), "/persons/u1", "").Code)
}

func TestAdminOrSelf(t *testing.T) {
	member := fakeValidator{token: "t", claims: &models.JWTClaims{UserID: "u1"}}
	r := newRouter(JWT(member), AdminOrSelf())

	assert.Equal(t, http.StatusOK, serve(r, "/persons/u1", "Bearer t").Code)
	assert.Equal(t, http.StatusForbidden, serve(r, "/persons/u2", "Bearer t").Code)
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	metrics := service.NewMetricsService()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics(metrics, "/metrics"))
	r.GET("/persons/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, "/persons/u1", "")
	serve(r, "/persons/u2", "")
	serve(r, "/metrics", "")
	serve(r, "/nowhere", "")

	assert.Equal(t, uint64(3), metrics.Snapshot().RequestsTotal)

	body := serve(metrics.Handler(), "/metrics", "").Body.String()
	assert.Contains(t, body, `path="/persons/:id"`)
	assert.Contains(t, body, `path="unmatched"`)
	assert.NotContains(t, body, "/persons/u1")
}

func TestResponseMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(WithResponseMeta())
	r.GET("/tally", func(c *gin.Context) {
		SetCacheHit(c, true)
		c.JSON(http.StatusOK, ExtractMeta(c))
	})

	r.GET("/plain", func(c *gin.Context) {
		c.JSON(http.StatusOK, ExtractMeta(c))
	})

	rec := serve(r, "/tally", "")
	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &meta))
	assert.Equal(t, true, meta["cache_hit"])
	assert.Contains(t, meta, "processing_time_ms")

	rec = serve(r, "/plain", "")
	meta = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &meta))
	assert.NotContains(t, meta, "cache_hit")
}

func TestResponseMetaWithoutMiddleware(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	SetCacheHit(c, true)
	assert.Nil(t, ExtractMeta(c))
}
