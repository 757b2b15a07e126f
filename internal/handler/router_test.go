package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/evp-nightshift/messenger/internal/application"
	"github.com/evp-nightshift/messenger/internal/category"
	"github.com/evp-nightshift/messenger/internal/domain"
	"github.com/evp-nightshift/messenger/internal/middleware"
	"github.com/evp-nightshift/messenger/internal/notify"
	"github.com/evp-nightshift/messenger/internal/repository/memory"
	"github.com/evp-nightshift/messenger/internal/verification"
)

const (
	secret   = "router-secret"
	issuer   = "nightshift-auth"
	audience = "nightshift-clients"
)

type stubSender struct {
	mu   sync.Mutex
	sent []notify.Envelope
	err  error
}

func (s *stubSender) Send(_ context.Context, env notify.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, env)
	return nil
}

func (s *stubSender) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *stubSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type noReviewer struct{}

func (noReviewer) NotifyReviewer(context.Context, *domain.Message) error { return nil }

type env struct {
	server *httptest.Server
	sender *stubSender
	store  *memory.Store
}

func setup(t *testing.T, approval bool, jwtSecret string) *env {
	t.Helper()
	e := &env{sender: &stubSender{}, store: memory.New()}

	svc := application.New(e.store, category.Default(), e.sender, noReviewer{}, application.WithApproval(approval))
	ver := verification.NewService(verification.NewMemoryStore(), verification.LogCodeSender{},
		verification.WithDevMode(true),
		verification.WithHashCost(bcrypt.MinCost),
	)

	h := NewRouter(
		NewMessageHandler(svc),
		NewSupervisorHandler(svc),
		NewVerificationHandler(ver),
		RouterConfig{
			ServiceName:       "test",
			JWTSecret:         jwtSecret,
			JWTIssuer:         issuer,
			JWTAudience:       audience,
			ReviewerRole:      "reviewer",
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
			RequestTimeout:    5 * time.Second,
		},
	)
	e.server = httptest.NewServer(h)
	t.Cleanup(e.server.Close)
	return e
}

func token(t *testing.T, sub, role string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func (e *env) do(t *testing.T, method, path, body, bearer string) (int, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	res, err := e.server.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	var out map[string]interface{}
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(res.Body)
	if strings.HasPrefix(res.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(buf.Bytes(), &out), buf.String())
	}
	return res.StatusCode, out
}

const generalInquiry = `{"category":"General Inquiry","topic":"Broken light","message":"Hallway light out","workerName":"A. Worker","workerEmail":"a@x.com"}`

func TestSend_Immediate(t *testing.T) {
	e := setup(t, false, "")

	status, body := e.do(t, http.MethodPost, "/api/send", generalInquiry, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Message sent successfully", body["message"])
	assert.NotContains(t, body, "messageId")
	assert.Equal(t, 1, e.sender.count())
	assert.Zero(t, e.store.Len())
}

func TestSend_Errors(t *testing.T) {
	e := setup(t, false, "")

	tests := []struct {
		name   string
		body   string
		status int
		msg    string
	}{
		{"malformed json", `{"category":`, http.StatusBadRequest, "invalid JSON in request body"},
		{"missing fields", `{"category":"General Inquiry","topic":"x"}`, http.StatusBadRequest, "missing required fields"},
		{"unknown category", `{"category":"Nope","topic":"x","message":"y"}`, http.StatusBadRequest, "invalid category"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := e.do(t, http.MethodPost, "/api/send", tt.body, "")
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.msg, body["error"])
			assert.Equal(t, "validation_error", body["code"])
		})
	}
	assert.Zero(t, e.sender.count())

	e.sender.fail(domain.WrapDelivery(errors.New("provider down")))
	status, body := e.do(t, http.MethodPost, "/api/send", generalInquiry, "")
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "delivery_failed", body["code"])
}

func TestCategories(t *testing.T) {
	e := setup(t, false, "")

	status, body := e.do(t, http.MethodGet, "/api/categories", "", "")
	require.Equal(t, http.StatusOK, status)

	cats := body["categories"].([]interface{})
	require.Len(t, cats, len(category.Default().Mappings()))
	first := cats[0].(map[string]interface{})
	assert.Equal(t, category.AnonymousFeedback, first["label"])
	assert.Equal(t, true, first["anonymous"])
	assert.NotContains(t, first, "email")
}

func TestSupervisor_Disabled(t *testing.T) {
	e := setup(t, false, "")

	status, body := e.do(t, http.MethodGet, "/api/supervisor/messages", "", "")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Supervisor approval is not enabled", body["error"])

	status, _ = e.do(t, http.MethodPost, "/api/supervisor/action", `not json`, "")
	assert.Equal(t, http.StatusForbidden, status)
}

func TestSupervisor_ApprovalFlow(t *testing.T) {
	e := setup(t, true, "")

	status, body := e.do(t, http.MethodPost, "/api/send", generalInquiry, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Message submitted for approval", body["message"])
	id := body["messageId"].(float64)
	assert.Zero(t, e.sender.count())

	status, body = e.do(t, http.MethodGet, "/api/supervisor/messages", "", "")
	require.Equal(t, http.StatusOK, status)
	msgs := body["messages"].([]interface{})
	require.Len(t, msgs, 1)
	listed := msgs[0].(map[string]interface{})
	assert.Equal(t, id, listed["id"])
	assert.Equal(t, "pending", listed["status"])
	assert.Equal(t, "A. Worker", listed["worker_name"])

	status, body = e.do(t, http.MethodPost, "/api/supervisor/action", `{"messageId":`+jsonNum(id)+`,"action":"approve"}`, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Message approved successfully", body["message"])
	assert.Equal(t, "sent", body["status"])
	assert.Equal(t, 1, e.sender.count())

	status, body = e.do(t, http.MethodPost, "/api/supervisor/action", `{"messageId":`+jsonNum(id)+`,"action":"reject"}`, "")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "Message already processed", body["error"])

	status, body = e.do(t, http.MethodGet, "/api/supervisor/messages", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["messages"])
}

func TestSupervisor_ActionValidation(t *testing.T) {
	e := setup(t, true, "")

	for _, body := range []string{
		`{"messageId":0,"action":"approve"}`,
		`{"messageId":1,"action":"archive"}`,
		`{"action":"approve"}`,
	} {
		status, out := e.do(t, http.MethodPost, "/api/supervisor/action", body, "")
		assert.Equal(t, http.StatusBadRequest, status, body)
		assert.Equal(t, "invalid request", out["error"])
	}

	status, out := e.do(t, http.MethodPost, "/api/supervisor/action", `{"messageId":99,"action":"reject"}`, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Message not found", out["error"])
}

func TestSupervisor_RequiresReviewerToken(t *testing.T) {
	e := setup(t, true, secret)

	status, _ := e.do(t, http.MethodGet, "/api/supervisor/messages", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = e.do(t, http.MethodGet, "/api/supervisor/messages", "", token(t, "worker-1", "worker"))
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = e.do(t, http.MethodGet, "/api/supervisor/messages", "", token(t, "boss-1", "reviewer"))
	assert.Equal(t, http.StatusOK, status)

	// Submitting stays open.
	status, _ = e.do(t, http.MethodPost, "/api/send", generalInquiry, "")
	assert.Equal(t, http.StatusOK, status)
}

func TestVerifyPhone(t *testing.T) {
	e := setup(t, false, secret)
	tok := token(t, "user-1", "worker")

	status, _ := e.do(t, http.MethodPost, "/api/auth/verify-phone", `{"action":"send","phone":"+19025550100"}`, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := e.do(t, http.MethodPost, "/api/auth/verify-phone", `{"action":"send","phone":"+19025550100"}`, tok)
	require.Equal(t, http.StatusOK, status)
	code := body["code"].(string)
	require.Len(t, code, 6)

	status, body = e.do(t, http.MethodPost, "/api/auth/verify-phone", `{"action":"verify","phone":"+19025550199","code":"`+code+`"}`, tok)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Phone number mismatch", body["error"])

	status, body = e.do(t, http.MethodPost, "/api/auth/verify-phone", `{"action":"verify","phone":"+19025550100","code":"`+code+`"}`, tok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Phone number verified successfully", body["message"])

	status, body = e.do(t, http.MethodPost, "/api/auth/verify-phone", `{"action":"resend"}`, tok)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, `Invalid action. Use "send" or "verify"`, body["error"])
}

func TestVerifyPhone_NotMountedWithoutJWT(t *testing.T) {
	e := setup(t, false, "")
	status, _ := e.do(t, http.MethodPost, "/api/auth/verify-phone", `{"action":"send","phone":"1"}`, "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRateLimiting(t *testing.T) {
	e := &env{sender: &stubSender{}, store: memory.New()}
	svc := application.New(e.store, category.Default(), e.sender, noReviewer{})
	h := NewRouter(NewMessageHandler(svc), NewSupervisorHandler(svc), nil, RouterConfig{
		ServiceName:       "test",
		RateLimitRequests: 10,
		RateLimitWindow:   time.Minute,
	})
	e.server = httptest.NewServer(h)
	defer e.server.Close()

	send := func() int {
		req, _ := http.NewRequest(http.MethodPost, e.server.URL+"/api/send", strings.NewReader(generalInquiry))
		req.Header.Set("X-Forwarded-For", "192.168.1.100")
		res, err := e.server.Client().Do(req)
		require.NoError(t, err)
		res.Body.Close()
		return res.StatusCode
	}

	for i := 0; i < 10; i++ {
		require.NotEqual(t, http.StatusTooManyRequests, send(), "request %d got 429 too early", i)
	}
	assert.Equal(t, http.StatusTooManyRequests, send())
	assert.Equal(t, 10, e.sender.count())
}

func TestSend_BodyTooLarge(t *testing.T) {
	sender := &stubSender{}
	svc := application.New(memory.New(), category.Default(), sender, noReviewer{})
	h := NewRouter(NewMessageHandler(svc), NewSupervisorHandler(svc), nil, RouterConfig{
		ServiceName:       "test",
		RateLimitRequests: 10,
		RateLimitWindow:   time.Minute,
	})

	body := `{"category":"General Inquiry","topic":"x","message":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/send", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.JSONEq(t, `{"error":"request body too large","code":"payload_too_large"}`, rec.Body.String())
	assert.Zero(t, sender.count())
}

func jsonNum(f float64) string {
	b, _ := json.Marshal(int64(f))
	return string(b)
}
