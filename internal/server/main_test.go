package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"agora/internal/config"
	"agora/internal/database"
	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/oauth"
	"agora/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-secret-that-is-long-enough-123"

type sentMail struct {
	to, subject, body string
}

type mailerStub struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *mailerStub) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

type testEnv struct {
	server *Server
	app    *fiber.App
	db     *gorm.DB
	redis  *miniredis.Miniredis
	mailer *mailerStub
	cfg    *config.Config
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:         testSecret,
		Port:              "0",
		Env:               "test",
		AllowedOrigins:    "*",
		ClientURL:         "http://client.test",
		UploadDriver:      "local",
		UploadMaxBytes:    1 << 20,
		GoogleClientID:    "google-client",
		OAuthRedirectBase: "http://api.test",
	}
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store, err := storage.NewLocalStore(t.TempDir(), storage.LocalURLPrefix)
	require.NoError(t, err)

	mailer := &mailerStub{}
	s := NewServerWithDeps(cfg, Deps{
		DB:     db,
		Redis:  rdb,
		Store:  store,
		Mailer: mailer,
		OAuth:  oauth.NewProviders(cfg),
	})
	return &testEnv{server: s, app: s.NewApp(), db: db, redis: mr, mailer: mailer, cfg: cfg}
}

func (e *testEnv) createUser(t *testing.T, name string) (*models.User, string) {
	t.Helper()
	u := &models.User{Username: name, Email: name + "@example.com", Password: "hash"}
	require.NoError(t, e.db.Create(u).Error)
	token, err := middleware.IssueToken(testSecret, u.ID)
	require.NoError(t, err)
	return u, token
}

func (e *testEnv) createPost(t *testing.T, creatorID uint, title string) *models.Post {
	t.Helper()
	p := &models.Post{Title: title, Text: "body of " + title, IsPublic: true, CreatorID: creatorID}
	require.NoError(t, e.db.Create(p).Error)
	return p
}

// do sends a request with an optional JSON body and bearer token.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func urlf(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}
