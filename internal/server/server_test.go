package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"media-relay/config"
	"media-relay/internal/admin"
	"media-relay/internal/handler"
	"media-relay/internal/queue"
	"media-relay/internal/relay"
	"media-relay/internal/services"
	"media-relay/internal/transport/httpdto"
	"media-relay/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUploader struct {
	mu    sync.Mutex
	calls []string
}

func (u *stubUploader) Upload(ctx context.Context, filePath, mimeType, filename string) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls = append(u.calls, filename)
	return "https://files.test/" + filename, nil
}

func (u *stubUploader) count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.calls)
}

type stubPinger struct {
	mu  sync.Mutex
	err error
}

func (p *stubPinger) Ping(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *stubPinger) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

type testEnv struct {
	engine     *gin.Engine
	store      *admin.Store
	queue      *queue.Queue
	up         *stubUploader
	pinger     *stubPinger
	stagingDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{
		AppPort:            "0",
		AppMode:            TestMode,
		JWTSecret:          "test-secret",
		JWTExpiryMin:       5,
		AdminUsername:      "operator",
		AdminPassword:      "hunter22",
		GatewayToken:       "gw-token",
		StagingDir:         filepath.Join(dir, "staging"),
		MaxFileSizeMB:      1,
		FloodPerMin:        600,
		FloodBurst:         100,
		QueueConcurrency:   2,
		QueueMaxLength:     10,
		ProgressIntervalMS: 10,
		AdminStorePath:     filepath.Join(dir, "admin.json"),
		WarnThreshold:      3,
	}
	require.NoError(t, os.MkdirAll(cfg.StagingDir, 0o755))

	store, err := admin.NewStore(admin.Config{Path: cfg.AdminStorePath, WarnThreshold: cfg.WarnThreshold}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	up := &stubUploader{}
	rly := relay.New(relay.Config{
		StagingDir:   cfg.StagingDir,
		MaxFileBytes: int64(cfg.MaxFileSizeMB) << 20,
		FloodPerMin:  cfg.FloodPerMin,
		FloodBurst:   cfg.FloodBurst,
	}, relay.NopResponder{}, store, nil)

	q := queue.New(queue.Config{
		Concurrency:      cfg.QueueConcurrency,
		MaxQueue:         cfg.QueueMaxLength,
		ProgressInterval: time.Duration(cfg.ProgressIntervalMS) * time.Millisecond,
	}, up, rly, nil)
	rly.AttachQueue(q)

	authService, err := services.NewAuthService(cfg)
	require.NoError(t, err)

	hub := websocket.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	pinger := &stubPinger{}
	srv := New(cfg, nil)
	srv.SetupRoutes(&Handlers{
		Auth:   handler.NewAuthHandler(authService),
		Health: handler.NewHealthHandler(cfg.StagingDir, pinger),
		Ingest: handler.NewIngestHandler(rly),
		Queue:  handler.NewQueueHandler(q),
		Admin:  handler.NewAdminHandler(store),
		WS:     websocket.NewHandler(authService, hub),
	}, authService)

	return &testEnv{
		engine:     srv.Engine(),
		store:      store,
		queue:      q,
		up:         up,
		pinger:     pinger,
		stagingDir: cfg.StagingDir,
	}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) httpdto.Response[T] {
	t.Helper()
	var resp httpdto.Response[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (env *testEnv) login(t *testing.T) string {
	t.Helper()
	body, err := json.Marshal(httpdto.LoginRequest{Username: "operator", Password: "hunter22"})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	env.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[httpdto.LoginResponse](t, w)
	require.True(t, resp.Success)
	require.NotEmpty(t, resp.Data.AccessToken)
	return resp.Data.AccessToken
}

func (env *testEnv) ingest(t *testing.T, gatewayToken, userID, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("user_id", userID))
	require.NoError(t, mw.WriteField("chat_id", "chat-1"))
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/ingest/media", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if gatewayToken != "" {
		req.Header.Set("Authorization", "Bearer "+gatewayToken)
	}
	env.engine.ServeHTTP(w, req)
	return w
}

func (env *testEnv) get(t *testing.T, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	env.engine.ServeHTTP(w, req)
	return w
}

func (env *testEnv) sendJSON(t *testing.T, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	env.engine.ServeHTTP(w, req)
	return w
}

func (env *testEnv) waitCompleted(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return env.queue.Stats().Completed == n
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPingAndHealth(t *testing.T) {
	env := newTestEnv(t)

	w := env.get(t, "/ping", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.get(t, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthReportsStorageOutage(t *testing.T) {
	env := newTestEnv(t)

	w := env.get(t, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	env.pinger.fail(errors.New("dial tcp 10.0.0.9:9000: connect: connection refused"))
	w = env.get(t, "/health", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	resp := decode[any](t, w)
	assert.False(t, resp.Success)
	assert.Equal(t, "object storage unreachable", resp.Error)
}

func TestHealthReportsUnwritableStaging(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, os.RemoveAll(env.stagingDir))

	w := env.get(t, "/health", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "staging directory not writable", decode[any](t, w).Error)
}

func TestLoginGuardsTheDashboard(t *testing.T) {
	env := newTestEnv(t)

	w := env.sendJSON(t, http.MethodPost, "/v1/auth/login", "",
		httpdto.LoginRequest{Username: "operator", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.get(t, "/v1/queue/stats", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := env.login(t)
	w = env.get(t, "/v1/queue/stats", token)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[queue.Stats](t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, 0, resp.Data.Total)
}

func TestIngestRequiresGatewayToken(t *testing.T) {
	env := newTestEnv(t)

	w := env.ingest(t, "", "u1", "cat.png", []byte("png-bytes"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.ingest(t, "wrong-token", "u1", "cat.png", []byte("png-bytes"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIngestQueuesAndUploads(t *testing.T) {
	env := newTestEnv(t)

	w := env.ingest(t, "gw-token", "u1", "cat.png", []byte("png-bytes"))
	require.Equal(t, http.StatusAccepted, w.Code)

	resp := decode[httpdto.IngestResponse](t, w)
	assert.Equal(t, string(queue.OutcomeQueued), resp.Data.Outcome)
	assert.Equal(t, 1, resp.Data.Position)

	env.waitCompleted(t, 1)
	assert.Equal(t, 1, env.up.count())
}

func TestIngestReportsDuplicateWithLink(t *testing.T) {
	env := newTestEnv(t)

	w := env.ingest(t, "gw-token", "u1", "cat.png", []byte("same-bytes"))
	require.Equal(t, http.StatusAccepted, w.Code)
	env.waitCompleted(t, 1)

	w = env.ingest(t, "gw-token", "u1", "cat-again.png", []byte("same-bytes"))
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[httpdto.IngestResponse](t, w)
	assert.Equal(t, string(queue.OutcomeDuplicate), resp.Data.Outcome)
	assert.Equal(t, "https://files.test/cat.png", resp.Data.Link)
}

func TestIngestRejectsOversizedFile(t *testing.T) {
	env := newTestEnv(t)

	big := bytes.Repeat([]byte("x"), 1<<20+1)
	w := env.ingest(t, "gw-token", "u1", "huge.bin", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestSuspensionBlocksIngest(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	w := env.sendJSON(t, http.MethodPost, "/v1/admin/users/u9/suspend", token,
		httpdto.SuspendRequest{Reason: "spamming"})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.ingest(t, "gw-token", "u9", "cat.png", []byte("bytes"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.sendJSON(t, http.MethodDelete, "/v1/admin/users/u9/suspend", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.ingest(t, "gw-token", "u9", "cat.png", []byte("bytes"))
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestWarningsEscalateToSuspension(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	var escalated bool
	for i := 0; i < 3; i++ {
		w := env.sendJSON(t, http.MethodPost, "/v1/admin/users/u5/warn", token,
			httpdto.WarnRequest{Reason: "offensive filename"})
		require.Equal(t, http.StatusOK, w.Code)
		escalated = decode[httpdto.WarnResponse](t, w).Data.Escalated
	}
	assert.True(t, escalated)

	w := env.get(t, "/v1/admin/suspensions", token)
	require.Equal(t, http.StatusOK, w.Code)
	suspensions := decode[[]admin.Suspension](t, w)
	require.Len(t, suspensions.Data, 1)
	assert.Equal(t, "u5", suspensions.Data[0].UserID)

	resp := env.ingest(t, "gw-token", "u5", "cat.png", []byte("bytes"))
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestRoleRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	w := env.get(t, "/v1/admin/users/u2/role", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user", decode[httpdto.RoleResponse](t, w).Data.Role)

	w = env.sendJSON(t, http.MethodPut, "/v1/admin/users/u2/role", token,
		httpdto.SetRoleRequest{Role: "moderator"})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.get(t, "/v1/admin/users/u2/role", token)
	assert.Equal(t, "moderator", decode[httpdto.RoleResponse](t, w).Data.Role)

	w = env.sendJSON(t, http.MethodPut, "/v1/admin/users/u2/role", token,
		httpdto.SetRoleRequest{Role: "emperor"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuditTrailIsServed(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	env.sendJSON(t, http.MethodPut, "/v1/admin/users/u2/role", token,
		httpdto.SetRoleRequest{Role: "moderator"})
	env.sendJSON(t, http.MethodPost, "/v1/admin/users/u3/warn", token,
		httpdto.WarnRequest{Reason: "spam"})

	w := env.get(t, "/v1/admin/audit?limit=10", token)
	require.Equal(t, http.StatusOK, w.Code)

	entries := decode[[]admin.AuditEntry](t, w).Data
	require.Len(t, entries, 2)
	// newest first
	assert.Equal(t, "user.warn", entries[0].Action)
	assert.Equal(t, "role.set", entries[1].Action)
	assert.Equal(t, "operator", entries[0].Actor)
}

func TestUserStatusEndpoint(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	w := env.ingest(t, "gw-token", "u1", "one.png", []byte("aa"))
	require.Equal(t, http.StatusAccepted, w.Code)
	w = env.ingest(t, "gw-token", "u2", "two.png", []byte("bb"))
	require.Equal(t, http.StatusAccepted, w.Code)
	env.waitCompleted(t, 2)

	w = env.get(t, "/v1/queue/users/u1", token)
	require.Equal(t, http.StatusOK, w.Code)

	status := decode[queue.UserStatus](t, w).Data
	assert.Equal(t, 1, status.Completed)
	assert.Equal(t, 1, status.Total)
}

func TestWebsocketRouteRequiresToken(t *testing.T) {
	env := newTestEnv(t)

	w := env.get(t, "/v1/ws", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.get(t, "/v1/ws?token=bogus", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
