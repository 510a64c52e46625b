package e2e

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/adforge/api/internal/auth"
	"github.com/adforge/api/internal/client"
	"github.com/adforge/api/internal/config"
	"github.com/adforge/api/internal/engine"
	"github.com/adforge/api/internal/handler"
	"github.com/adforge/api/internal/middleware"
	"github.com/adforge/api/internal/service"
	"github.com/adforge/api/internal/store"
)

const testJWTSecret = "test-secret-for-e2e"

// testApp holds all components needed for testing
type testApp struct {
	app *fiber.App
}

// setupApp creates a Fiber app identical to main.go but backed by an
// in-process Redis and unconfigured external clients, so all services use
// their mock fallbacks.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: mr.Addr()})
	t.Cleanup(func() { asynqClient.Close() })

	validate := validator.New()

	// External clients — no API keys → mock fallbacks
	chatClient := client.NewChatClient(&config.ChatConfig{})

	// Engine and services
	st := store.New(redisClient)
	assistantService := service.NewAssistantService(chatClient)
	eng := engine.New(st, assistantService)
	generationService := service.NewGenerationService(redisClient, asynqClient, eng)

	// Handlers
	projectHandler := handler.NewProjectHandler(eng, validate)
	draftHandler := handler.NewDraftHandler(eng, validate)
	versionHandler := handler.NewVersionHandler(eng, validate)
	generationHandler := handler.NewGenerationHandler(generationService, validate)
	authHandler := handler.NewAuthHandler(nil, testJWTSecret)

	// Auth middleware — legacy HMAC only
	authMiddleware := middleware.NewLegacyAuthMiddleware(testJWTSecret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024,
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"chat":   false,
				"speech": false,
				"music":  false,
				"sfx":    false,
				"r2":     false,
				"auth":   true,
			},
		})
	})
	app.Get("/auth/verify", authHandler.Verify)

	// API routes (authenticated); rate limits high enough to never block
	api := app.Group("/api", authMiddleware.Authenticate())

	projects := api.Group("/projects")
	projects.Post("/", projectHandler.Create)
	projects.Get("/:projectId", projectHandler.Get)
	projects.Get("/:projectId/timeline", projectHandler.Timeline)
	projects.Post("/:projectId/:stream/drafts", rateLimiter.DraftLimit(10000), draftHandler.Create)
	projects.Patch("/:projectId/:stream/drafts/:versionId", rateLimiter.DraftLimit(10000), draftHandler.Update)
	projects.Get("/:projectId/:stream/versions", projectHandler.History)
	projects.Get("/:projectId/:stream/versions/:versionId", versionHandler.Get)
	projects.Post("/:projectId/:stream/versions/:versionId/freeze", versionHandler.Freeze)
	projects.Post("/:projectId/:stream/versions/:versionId/activate", versionHandler.Activate)
	projects.Post("/:projectId/:stream/versions/:versionId/iterate", rateLimiter.IterateLimit(10000), versionHandler.Iterate)

	generate := api.Group("/generate")
	generate.Post("/", rateLimiter.GenerateLimit(10000), generationHandler.Generate)
	generate.Get("/status/:jobId", generationHandler.Status)

	return &testApp{app: app}
}

// generateToken creates a legacy HMAC JWT token for test requests.
func generateToken(t *testing.T) string {
	t.Helper()
	claims := auth.LegacyClaims{
		UserID: "test-user-123",
		Email:  "test@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "adforge-api",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return signed
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doAuthRequest performs an authenticated request.
func doAuthRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, error) {
	t.Helper()
	token := generateToken(t)
	return doRequest(app, method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}
