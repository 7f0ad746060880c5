package server_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commission-art-backend/internal/config"
	"commission-art-backend/internal/logging"
	"commission-art-backend/internal/metrics"
	"commission-art-backend/internal/models"
	"commission-art-backend/internal/ratelimit"
	"commission-art-backend/internal/server"
	"commission-art-backend/internal/services"
	"commission-art-backend/internal/services/servicetest"
	"commission-art-backend/internal/supabase"
	"commission-art-backend/internal/workflow"
)

const jwtSecret = "test-secret-key-for-jwt-signing-must-be-long-enough"

type fakeDB struct{ err error }

func (f fakeDB) Ping(context.Context) error { return f.err }

type testServer struct {
	router   *gin.Engine
	store    *servicetest.Store
	media    *servicetest.Media
	identity *servicetest.Identity
	realtime *supabase.RealtimeClient

	stopStreams context.CancelFunc
}

func newTestServer(t *testing.T, db fakeDB) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		SupabaseJWTSecret: jwtSecret,
		CORSOrigins:       []string{"http://localhost:3000"},
	}
	logger := logging.NewNop()
	m := metrics.New()

	ts := &testServer{
		store:    servicetest.NewStore(),
		media:    servicetest.NewMedia(),
		identity: servicetest.NewIdentity(),
		realtime: supabase.NewRealtimeClient(logger),
	}
	storage := services.NewStorageService(ts.media, servicetest.Buckets, m, logger)
	streams, stopStreams := context.WithCancel(context.Background())
	t.Cleanup(stopStreams)
	ts.stopStreams = stopStreams

	ts.router = server.NewRouter(cfg, server.Deps{
		Logger:   logger,
		Metrics:  m,
		DB:       db,
		Profiles: ts.store,
		Realtime: ts.realtime,
		Streams:  streams,
		Auth:     services.NewAuthService(ts.identity, ts.store, logger),
		Orders:   services.NewOrderService(ts.store, storage, m, logger),
		Messages: services.NewMessageService(ts.store, ts.store, storage, ratelimit.NewMemoryLimiter(ratelimit.MessageWindow), m, logger),
		Gallery:  services.NewGalleryService(ts.store, storage, logger),
	})
	return ts
}

func token(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID.String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return s
}

type part struct {
	field, filename string
	data            []byte
}

func multipartBody(t *testing.T, fields map[string]string, files ...part) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := w.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = fw.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func (ts *testServer) do(t *testing.T, method, path string, userID uuid.UUID, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req, err := http.NewRequest(method, path, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if userID != uuid.Nil {
		req.Header.Set("Authorization", "Bearer "+token(t, userID))
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) action(t *testing.T, orderID string, action string, userID uuid.UUID, payload string) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Buffer
	if payload != "" {
		body = bytes.NewBufferString(payload)
	}
	return ts.do(t, http.MethodPost, "/api/v1/orders/"+orderID+"/actions/"+action, userID, body, "application/json")
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func pngFile(field string) part {
	return part{field: field, filename: "ref.png", data: servicetest.PNGHeader}
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t, fakeDB{})

	w := ts.do(t, http.MethodGet, "/health", uuid.Nil, nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")

	w = ts.do(t, http.MethodGet, "/ready", uuid.Nil, nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	down := newTestServer(t, fakeDB{err: errors.New("connection refused")})
	w = down.do(t, http.MethodGet, "/ready", uuid.Nil, nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, fakeDB{})
	ts.do(t, http.MethodGet, "/health", uuid.Nil, nil, "")

	w := ts.do(t, http.MethodGet, "/metrics", uuid.Nil, nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_request_duration_seconds")
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	ts := newTestServer(t, fakeDB{})

	for _, path := range []string{"/api/v1/orders", "/api/v1/me", "/api/v1/admin/stats"} {
		w := ts.do(t, http.MethodGet, path, uuid.Nil, nil, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	// A valid token for an account without a profile is still turned away.
	w := ts.do(t, http.MethodGet, "/api/v1/orders", uuid.New(), nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBannedUserIsForbidden(t *testing.T) {
	ts := newTestServer(t, fakeDB{})
	p := ts.store.AddProfile(workflow.RoleUser)
	ts.store.Profiles[p.ID].IsBanned = true

	w := ts.do(t, http.MethodGet, "/api/v1/orders", p.ID, nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRegisterLoginMe(t *testing.T) {
	ts := newTestServer(t, fakeDB{})

	w := ts.do(t, http.MethodPost, "/api/v1/auth/register", uuid.Nil,
		bytes.NewBufferString(`{"email":"New@Example.com","password":"secret123","full_name":"New User"}`), "application/json")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	registered := decode[models.SessionResponse](t, w)
	assert.Equal(t, "new@example.com", registered.Profile.Email)
	assert.Equal(t, "user", registered.Profile.Role)

	w = ts.do(t, http.MethodPost, "/api/v1/auth/login", uuid.Nil,
		bytes.NewBufferString(`{"email":"new@example.com","password":"wrong-password"}`), "application/json")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodPost, "/api/v1/auth/login", uuid.Nil,
		bytes.NewBufferString(`{"email":"new@example.com","password":"secret123"}`), "application/json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode[models.SessionResponse](t, w).AccessToken)

	userID := uuid.MustParse(registered.Profile.ID)
	w = ts.do(t, http.MethodGet, "/api/v1/me", userID, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[models.MeResponse](t, w)
	assert.Equal(t, []string{"create_orders"}, me.Capabilities)

	w = ts.do(t, http.MethodPost, "/api/v1/auth/logout", userID, nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Len(t, ts.identity.SignedOut, 1)
}

func TestRegisterValidation(t *testing.T) {
	ts := newTestServer(t, fakeDB{})

	w := ts.do(t, http.MethodPost, "/api/v1/auth/register", uuid.Nil,
		bytes.NewBufferString(`{"email":"not-an-email","password":"secret123"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/v1/auth/register", uuid.Nil,
		bytes.NewBufferString(`{"email":"a@example.com"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrderWorkflowOverHTTP(t *testing.T) {
	ts := newTestServer(t, fakeDB{})
	client := ts.store.AddProfile(workflow.RoleUser)
	artist := ts.store.AddProfile(workflow.RoleArtist)

	body, ct := multipartBody(t, map[string]string{
		"title":       "Portrait",
		"description": "A portrait of my cat",
	}, pngFile("images"), pngFile("images"))
	w := ts.do(t, http.MethodPost, "/api/v1/orders", artist.ID, body, ct)
	assert.Equal(t, http.StatusForbidden, w.Code, "artists do not place orders")

	body, ct = multipartBody(t, map[string]string{
		"title":       "Portrait",
		"description": "A portrait of my cat",
	}, pngFile("images"), pngFile("images"))
	w = ts.do(t, http.MethodPost, "/api/v1/orders", client.ID, body, ct)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decode[models.OrderResponse](t, w)
	assert.Equal(t, "pending", order.Status)
	assert.Len(t, order.ReferenceImages, 2)
	assert.Empty(t, order.AvailableActions)
	assert.Equal(t, "hidden", order.ChatMode)

	w = ts.do(t, http.MethodGet, "/api/v1/orders/"+order.ID, artist.ID, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"accept", "reject"}, decode[models.OrderResponse](t, w).AvailableActions)

	// Clients cannot run artist actions.
	w = ts.action(t, order.ID, "accept", client.ID, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.action(t, order.ID, "accept", artist.ID, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	accepted := decode[models.OrderResponse](t, w)
	assert.Equal(t, "discussing", accepted.Status)
	assert.Equal(t, artist.ID.String(), accepted.ArtistID)
	assert.Equal(t, "read_write", accepted.ChatMode)

	w = ts.action(t, order.ID, "set_price", artist.ID, `{"price":"0"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.action(t, order.ID, "set_price", artist.ID, `{"price":"2500"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	priced := decode[models.OrderResponse](t, w)
	assert.Equal(t, "payment_pending", priced.Status)
	assert.Equal(t, "2500", priced.Price)
	assert.Equal(t, []string{"reject_payment"}, priced.AvailableActions)

	// Payment cannot be confirmed before a screenshot exists.
	w = ts.action(t, order.ID, "confirm_payment", artist.ID, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	body, ct = multipartBody(t, nil, part{field: "file", filename: "proof.png", data: servicetest.PNGHeader})
	w = ts.do(t, http.MethodPost, "/api/v1/orders/"+order.ID+"/payment-proof", client.ID, body, ct)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	proof := decode[models.OrderResponse](t, w)
	assert.NotEmpty(t, proof.PaymentScreenshotURL)
	assert.Equal(t, []string{"upload_payment_proof"}, proof.AvailableActions)

	w = ts.action(t, order.ID, "confirm_payment", artist.ID, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "in_progress", decode[models.OrderResponse](t, w).Status)

	body, ct = multipartBody(t, nil, part{field: "file", filename: "final.psd", data: []byte("layered artwork")})
	w = ts.do(t, http.MethodPost, "/api/v1/orders/"+order.ID+"/complete", artist.ID, body, ct)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	done := decode[models.OrderResponse](t, w)
	assert.Equal(t, "completed", done.Status)
	assert.Equal(t, "read_only", done.ChatMode)
	assert.Contains(t, done.FinalWorkURL, "final-works/"+order.ID+"/final.psd")

	w = ts.do(t, http.MethodGet, "/api/v1/orders?status=completed", client.ID, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[models.OrderListResponse](t, w).Orders, 1)
}

func TestOrderInputErrors(t *testing.T) {
	ts := newTestServer(t, fakeDB{})
	client := ts.store.AddProfile(workflow.RoleUser)
	artist := ts.store.AddProfile(workflow.RoleArtist)
	order := ts.store.AddOrder(client.ID, workflow.StatusPending)

	w := ts.do(t, http.MethodPost, "/api/v1/orders", client.ID,
		bytes.NewBufferString(`{"title":"x"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code, "orders are created from multipart forms")

	w = ts.do(t, http.MethodGet, "/api/v1/orders/not-a-uuid", client.ID, nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/orders/"+uuid.NewString(), client.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/orders?status=shipped", client.ID, nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.action(t, order.ID.String(), "teleport", artist.ID, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.action(t, order.ID.String(), "reject", artist.ID, `{"reason":"  "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.action(t, order.ID.String(), "reject", artist.ID, `{"reason":"<b>Too detailed</b>"}`)
	require.Equal(t, http.StatusOK, w.Code)
	rejected := decode[models.OrderResponse](t, w)
	assert.Equal(t, "rejected", rejected.Status)
	assert.Equal(t, "Too detailed", rejected.RejectionReason)

	w = ts.action(t, order.ID.String(), "accept", artist.ID, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	// Another client's order is reported as missing.
	stranger := ts.store.AddProfile(workflow.RoleUser)
	w = ts.do(t, http.MethodGet, "/api/v1/orders/"+order.ID.String(), stranger.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChatOverHTTP(t *testing.T) {
	ts := newTestServer(t, fakeDB{})
	client := ts.store.AddProfile(workflow.RoleUser)
	artist := ts.store.AddProfile(workflow.RoleArtist)
	pending := ts.store.AddOrder(client.ID, workflow.StatusPending)
	active := ts.store.AddOrder(client.ID, workflow.StatusDiscussing)

	w := ts.do(t, http.MethodGet, "/api/v1/orders/"+pending.ID.String()+"/messages", client.ID, nil, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	path := "/api/v1/orders/" + active.ID.String() + "/messages"
	body, ct := multipartBody(t, map[string]string{"content": "Hello!"})
	w = ts.do(t, http.MethodPost, path, client.ID, body, ct)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "Hello!", decode[models.MessageResponse](t, w).Content)

	body, ct = multipartBody(t, map[string]string{"content": "Again"})
	w = ts.do(t, http.MethodPost, path, client.ID, body, ct)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	body, ct = multipartBody(t, nil, pngFile("image"))
	w = ts.do(t, http.MethodPost, path, artist.ID, body, ct)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	msg := decode[models.MessageResponse](t, w)
	assert.NotEmpty(t, msg.ImageURL)
	assert.NotEmpty(t, msg.Content)

	w = ts.do(t, http.MethodGet, path, client.ID, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	msgs := decode[models.MessagesResponse](t, w)
	assert.Equal(t, "read_write", msgs.ChatMode)
	assert.Len(t, msgs.Messages, 2)
}

func TestGalleryOverHTTP(t *testing.T) {
	ts := newTestServer(t, fakeDB{})
	client := ts.store.AddProfile(workflow.RoleUser)
	artist := ts.store.AddProfile(workflow.RoleArtist)

	body, ct := multipartBody(t, map[string]string{"title": "Sunset"}, pngFile("image"))
	w := ts.do(t, http.MethodPost, "/api/v1/gallery", client.ID, body, ct)
	assert.Equal(t, http.StatusForbidden, w.Code)

	body, ct = multipartBody(t, map[string]string{"title": "Sunset"}, pngFile("image"))
	w = ts.do(t, http.MethodPost, "/api/v1/gallery", artist.ID, body, ct)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	item := decode[models.GalleryItemResponse](t, w)
	assert.Contains(t, item.ThumbnailURL, "width=")

	w = ts.do(t, http.MethodGet, "/api/v1/gallery", uuid.Nil, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[models.GalleryResponse](t, w).Items, 1)

	w = ts.do(t, http.MethodDelete, "/api/v1/gallery/"+item.ID, artist.ID, nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, ts.media.Keys())

	w = ts.do(t, http.MethodDelete, "/api/v1/gallery/"+item.ID, artist.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminRoutes(t *testing.T) {
	ts := newTestServer(t, fakeDB{})
	artist := ts.store.AddProfile(workflow.RoleArtist)
	admin := ts.store.AddProfile(workflow.RoleAdmin)
	ts.store.AddOrder(artist.ID, workflow.StatusPending)

	w := ts.do(t, http.MethodGet, "/api/v1/admin/stats", artist.ID, nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/admin/stats", admin.ID, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[models.StatsResponse](t, w)
	assert.Equal(t, 2, stats.Users)
	assert.Equal(t, 1, stats.OrdersByStatus["pending"])
	assert.Equal(t, 0, stats.OrdersByStatus["completed"])
	assert.Len(t, stats.OrdersByStatus, len(workflow.Statuses()))

	w = ts.do(t, http.MethodGet, "/api/v1/admin/users", admin.ID, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[models.UsersResponse](t, w).Users, 2)
}

func TestOrderEventsStream(t *testing.T) {
	ts := newTestServer(t, fakeDB{})
	client := ts.store.AddProfile(workflow.RoleUser)
	order := ts.store.AddOrder(client.ID, workflow.StatusDiscussing)
	other := ts.store.AddOrder(client.ID, workflow.StatusDiscussing)

	srv := httptest.NewServer(ts.router)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	url := srv.URL + "/api/v1/orders/" + order.ID.String() + "/events?access_token=" + token(t, client.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	lines := bufio.NewScanner(resp.Body)
	next := func(prefix string) string {
		for lines.Scan() {
			if strings.HasPrefix(lines.Text(), prefix) {
				return lines.Text()
			}
		}
		t.Fatalf("stream ended before %q", prefix)
		return ""
	}

	assert.Equal(t, "event:ready", next("event:"))
	require.Equal(t, 1, ts.realtime.Subscribers())

	ts.realtime.Publish(supabase.ChangeEvent{Table: supabase.TableMessages, Op: "INSERT", ID: uuid.New(), OrderID: other.ID})
	ts.realtime.Publish(supabase.ChangeEvent{Table: supabase.TableMessages, Op: "INSERT", ID: uuid.New(), OrderID: order.ID})

	assert.Equal(t, "event:change", next("event:"))
	data := next("data:")
	assert.Contains(t, data, order.ID.String())
	assert.NotContains(t, data, other.ID.String())

	cancel()
	assert.Eventually(t, func() bool { return ts.realtime.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestShutdownEndsEventStreams(t *testing.T) {
	ts := newTestServer(t, fakeDB{})
	client := ts.store.AddProfile(workflow.RoleUser)
	order := ts.store.AddOrder(client.ID, workflow.StatusDiscussing)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := server.NewHTTPServer(ln.Addr().String(), ts.router, ts.stopStreams)
	go func() { _ = srv.Serve(ln) }()
	defer srv.Close()

	url := "http://" + ln.Addr().String() + "/api/v1/orders/" + order.ID.String() + "/events?access_token=" + token(t, client.ID)
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	assert.Equal(t, "event:ready", lines.Text())

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	start := time.Now()
	require.NoError(t, srv.Shutdown(ctx))
	assert.Less(t, time.Since(start), 3*time.Second)

	for lines.Scan() {
		// drain until the server ends the response
	}
	assert.Eventually(t, func() bool { return ts.realtime.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestOrderEventsHidesForeignOrders(t *testing.T) {
	ts := newTestServer(t, fakeDB{})
	owner := ts.store.AddProfile(workflow.RoleUser)
	stranger := ts.store.AddProfile(workflow.RoleUser)
	order := ts.store.AddOrder(owner.ID, workflow.StatusPending)

	w := ts.do(t, http.MethodGet, "/api/v1/orders/"+order.ID.String()+"/events", stranger.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 0, ts.realtime.Subscribers())
}
