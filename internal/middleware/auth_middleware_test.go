package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"game-server-tracker/configs"
	"game-server-tracker/internal/cache"
	"game-server-tracker/internal/database"
	"game-server-tracker/internal/models"
	"game-server-tracker/internal/services"

	"github.com/gin-gonic/gin"
)

func newAuthService(t *testing.T) *services.AuthService {
	t.Helper()
	conn, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.Migrate(conn); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	cred := models.Credential{PSK: "valid-key", Active: true, Description: "test"}
	if err := conn.Create(&cred).Error; err != nil {
		t.Fatalf("seed credential: %v", err)
	}
	svc, err := services.NewAuthService(conn, "string")
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	return svc
}

func echoAuth(c *gin.Context) {
	auth := Auth(c)
	c.JSON(http.StatusOK, gin.H{"anonymous": auth.Anonymous})
}

func TestRequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected", RequireAuth(newAuthService(t)), echoAuth)

	cases := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"missing key", "", "", http.StatusUnauthorized},
		{"unknown key", "nope", "", http.StatusUnauthorized},
		{"valid header key", "valid-key", "", http.StatusOK},
		{"valid query key", "", "valid-key", http.StatusOK},
	}

	for _, tc := range cases {
		path := "/protected"
		if tc.query != "" {
			path += "?api_key=" + tc.query
		}
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if tc.header != "" {
			req.Header.Set("X-API-Key", tc.header)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, rec.Code)
		}
	}
}

func TestOptionalAuthDegradesToAnonymous(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/open", OptionalAuth(newAuthService(t)), echoAuth)

	// an unknown key does not abort, it just loses identity
	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	req.Header.Set("X-API-Key", "nope")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"anonymous":true`) {
		t.Fatalf("unknown key must degrade to anonymous, got %s", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/open", nil)
	req.Header.Set("X-API-Key", "valid-key")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if !strings.Contains(rec.Body.String(), `"anonymous":false`) {
		t.Fatalf("valid key must resolve identity, got %s", rec.Body.String())
	}
}

func TestOptionalAuthStoreFailureAborts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	conn, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.Migrate(conn); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	svc, err := services.NewAuthService(conn, "string")
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}

	// kill the store so the credential lookup errors instead of missing
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.Close()

	router := gin.New()
	router.GET("/open", OptionalAuth(svc), echoAuth)

	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	req.Header.Set("X-API-Key", "any-key")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("a store failure must abort, not degrade to anonymous; got %d", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	saved := configs.AppConfig.RateLimitPerHour
	configs.AppConfig.RateLimitPerHour = 3
	defer func() { configs.AppConfig.RateLimitPerHour = saved }()

	router := gin.New()
	router.POST("/write", RateLimit(cache.NewManager("")), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	do := func(key string) int {
		req := httptest.NewRequest(http.MethodPost, "/write", nil)
		if key != "" {
			req.Header.Set("X-API-Key", key)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 3; i++ {
		if code := do("busy-key"); code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, code)
		}
	}
	if code := do("busy-key"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after limit, got %d", code)
	}

	// other credentials have their own budget
	if code := do("quiet-key"); code != http.StatusOK {
		t.Fatalf("expected 200 for a different key, got %d", code)
	}

	// anonymous requests are not counted
	if code := do(""); code != http.StatusOK {
		t.Fatalf("expected 200 for anonymous, got %d", code)
	}
}

func TestValidateJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ValidateJSON())
	router.POST("/data", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/data", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/data", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-JSON POST, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/data", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for JSON POST, got %d", rec.Code)
	}

	// reads are exempt
	req = httptest.NewRequest(http.MethodGet, "/data", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for GET, got %d", rec.Code)
	}
}
