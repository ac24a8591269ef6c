package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erp/bomengine/internal/infrastructure/config"
	"github.com/erp/bomengine/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubDomain struct {
	group *DomainGroup
}

func (s stubDomain) Routes() *DomainGroup { return s.group }

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.groups)

	r = NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouter_RegisterDomains(t *testing.T) {
	engine := gin.New()

	orders := NewDomainGroup("production", "/production-orders")
	orders.GET("/:id", func(c *gin.Context) {
		c.String(http.StatusOK, "order "+c.Param("id"))
	})
	boms := NewDomainGroup("bom", "/boms")
	boms.POST("", func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	r := NewRouter(engine)
	r.RegisterDomains(stubDomain{orders}, stubDomain{boms})
	require.Len(t, r.groups, 2)
	r.Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/production-orders/42", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "order 42", w.Body.String())

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/boms", nil))
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestDomainGroup_Methods(t *testing.T) {
	engine := gin.New()
	g := NewDomainGroup("inventory", "/batches")
	assert.Equal(t, "inventory", g.Name())
	assert.Equal(t, "/batches", g.Prefix())

	reply := func(body string) gin.HandlerFunc {
		return func(c *gin.Context) { c.String(http.StatusOK, body) }
	}
	g.GET("/:id", reply("get")).
		POST("/:id/retire", reply("post")).
		PUT("/:id", reply("put")).
		PATCH("/:id", reply("patch"))
	g.RegisterRoutes(engine.Group("/api/v1"))

	tests := []struct {
		method, path, body string
	}{
		{http.MethodGet, "/api/v1/batches/1", "get"},
		{http.MethodPost, "/api/v1/batches/1/retire", "post"},
		{http.MethodPut, "/api/v1/batches/1", "put"},
		{http.MethodPatch, "/api/v1/batches/1", "patch"},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.body, w.Body.String())
		})
	}

	t.Run("no delete route", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/batches/1", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestDomainGroup_MiddlewareAndSubgroups(t *testing.T) {
	engine := gin.New()

	g := NewDomainGroup("production", "/production-orders")
	g.Use(func(c *gin.Context) {
		c.Header("X-Group", "production")
		c.Next()
	})
	records := g.Group("records", "/records")
	records.PATCH("/:record_id/quality", func(c *gin.Context) {
		c.String(http.StatusOK, c.Param("record_id"))
	})
	g.RegisterRoutes(engine.Group("/api/v1"))

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/api/v1/production-orders/records/r-1/quality", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "r-1", w.Body.String())
	assert.Equal(t, "production", w.Header().Get("X-Group"))
}

func TestNewEngine(t *testing.T) {
	t.Run("assigns a request id and recovers panics", func(t *testing.T) {
		engine := NewEngine(EngineConfig{ServiceName: "test"})
		engine.GET("/boom", func(c *gin.Context) {
			panic("kaboom")
		})

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_INTERNAL")
		assert.NotEmpty(t, w.Header().Get(logger.RequestIDHeader))
	})

	t.Run("enforces the body limit", func(t *testing.T) {
		engine := NewEngine(EngineConfig{HTTP: config.HTTPConfig{MaxBodyBytes: 16}})
		engine.POST("/echo", func(c *gin.Context) {
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(strings.Repeat("x", 64))))
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("answers preflight for configured origins only", func(t *testing.T) {
		engine := NewEngine(EngineConfig{HTTP: config.HTTPConfig{
			CORSAllowOrigins: []string{"https://planner.example.com"},
			CORSAllowMethods: []string{"GET", "POST"},
			CORSAllowHeaders: []string{"Idempotency-Key"},
		}})
		engine.POST("/api/v1/production-orders", func(c *gin.Context) {
			c.Status(http.StatusCreated)
		})

		req := httptest.NewRequest(http.MethodOptions, "/api/v1/production-orders", nil)
		req.Header.Set("Origin", "https://planner.example.com")
		req.Header.Set("Access-Control-Request-Method", "POST")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		assert.Equal(t, "https://planner.example.com", w.Header().Get("Access-Control-Allow-Origin"))

		req = httptest.NewRequest(http.MethodOptions, "/api/v1/production-orders", nil)
		req.Header.Set("Origin", "https://elsewhere.example.com")
		req.Header.Set("Access-Control-Request-Method", "POST")
		w = httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}
