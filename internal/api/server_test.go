package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agroloop/agroloop/internal/daemon"
	"github.com/agroloop/agroloop/internal/domain"
	"github.com/agroloop/agroloop/internal/infra/kv"
)

func setupServer(t *testing.T) (http.Handler, *daemon.App) {
	t.Helper()
	cfg := daemon.DefaultConfig()
	cfg.Home = t.TempDir()
	cfg.Auth.BcryptCost = 4
	app := daemon.Wire(cfg, kv.NewMemory())
	srv := NewServer(app)
	srv.EnableMetrics()
	return srv.Handler(), app
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

func errorTypeOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	e, ok := decode(t, w)["error"].(map[string]any)
	require.True(t, ok, "missing error object: %s", w.Body.String())
	return e["type"].(string)
}

func signUp(t *testing.T, h http.Handler) string {
	t.Helper()
	w := do(t, h, http.MethodPost, "/api/auth/signup", credentials{Email: "farmer@example.com", Password: "secret1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)["uid"].(string)
}

// ─── Basics ─────────────────────────────────────────────────────────────────

func TestHealthAndVersion(t *testing.T) {
	h, _ := setupServer(t)

	w := do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])

	w = do(t, h, http.MethodGet, "/api/version", nil)
	assert.Equal(t, Version, decode(t, w)["version"])
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := setupServer(t)
	w := do(t, h, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "agroloop_")
}

func TestCORSPreflight(t *testing.T) {
	h, _ := setupServer(t)
	w := do(t, h, http.MethodOptions, "/api/waste", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestInvalidJSON(t *testing.T) {
	h, _ := setupServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signin", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_request", errorTypeOf(t, w))
}

// ─── Auth ───────────────────────────────────────────────────────────────────

func TestAuthFlow(t *testing.T) {
	h, _ := setupServer(t)

	w := do(t, h, http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	uid := signUp(t, h)
	w = do(t, h, http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uid, decode(t, w)["uid"])

	w = do(t, h, http.MethodPost, "/api/auth/signup", credentials{Email: "farmer@example.com", Password: "secret1"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, h, http.MethodPost, "/api/auth/signout", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodPost, "/api/auth/signin", credentials{Email: "farmer@example.com", Password: "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, h, http.MethodPost, "/api/auth/signin", credentials{Email: "Farmer@Example.com", Password: "secret1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uid, decode(t, w)["uid"])
}

func TestDeleteAccount(t *testing.T) {
	h, _ := setupServer(t)
	signUp(t, h)

	w := do(t, h, http.MethodDelete, "/api/auth/account", map[string]string{"password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, h, http.MethodPost, "/api/auth/signin", credentials{Email: "farmer@example.com", Password: "secret1"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

// ─── Farm flows ─────────────────────────────────────────────────────────────

func TestWasteLogFlow(t *testing.T) {
	h, _ := setupServer(t)
	uid := signUp(t, h)

	w := do(t, h, http.MethodPost, "/api/codes", domain.VerificationRequest{
		WasteType: "stubble", Quantity: 5, Location: "Field A",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	code := decode(t, w)
	assert.Equal(t, uid, code["farmerId"])

	log := map[string]any{"wasteTypeId": "stubble", "quantity": 5, "location": "Field A", "code": code["code"]}
	w = do(t, h, http.MethodPost, "/api/waste", log)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	activity := body["activity"].(map[string]any)
	assert.Equal(t, "Logged Rice Stubble", activity["title"])
	assert.EqualValues(t, 25, activity["credits"])
	assert.EqualValues(t, 25, body["totals"].(map[string]any)["ecoCredits"])

	w = do(t, h, http.MethodPost, "/api/waste", log)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodGet, "/api/codes/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["used"])

	w = do(t, h, http.MethodGet, "/api/activities?type=waste_log", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["activities"], 1)

	w = do(t, h, http.MethodGet, "/api/ledger/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 25, decode(t, w)["ecoCredits"])
}

func TestActivities_RequiresSession(t *testing.T) {
	h, _ := setupServer(t)
	w := do(t, h, http.MethodGet, "/api/activities", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", errorTypeOf(t, w))
}

func TestActivities_UnknownType(t *testing.T) {
	h, _ := setupServer(t)
	signUp(t, h)
	w := do(t, h, http.MethodGet, "/api/activities?type=harvest", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRedeemReward(t *testing.T) {
	h, app := setupServer(t)
	uid := signUp(t, h)

	w := do(t, h, http.MethodPost, "/api/rewards/3/redeem", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, h, http.MethodPost, "/api/rewards/999/redeem", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	_, err := app.Ledger.Append(uid, domain.NewActivity{Type: domain.ActivityWasteLog, Title: "Logged", Credits: domain.Credits(300)})
	require.NoError(t, err)

	w = do(t, h, http.MethodPost, "/api/rewards/3/redeem", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 50, decode(t, w)["totals"].(map[string]any)["ecoCredits"])
}

func TestCatalogs(t *testing.T) {
	h, _ := setupServer(t)

	w := do(t, h, http.MethodGet, "/api/waste/types", nil)
	assert.Len(t, decode(t, w)["wasteTypes"], 5)

	w = do(t, h, http.MethodGet, "/api/rewards?category=services", nil)
	assert.Len(t, decode(t, w)["rewards"], 5)
}

func TestCodeRedeem_NotFound(t *testing.T) {
	h, _ := setupServer(t)
	signUp(t, h)
	w := do(t, h, http.MethodPost, "/api/codes/redeem", map[string]string{"code": "7"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", errorTypeOf(t, w))
}

func TestCodeRoutes_OwnerOnly(t *testing.T) {
	h, app := setupServer(t)
	code, err := app.Codes.Issue(domain.VerificationRequest{
		WasteType: "stubble", Quantity: 5, Location: "Field A", FarmerID: "other-farmer",
	})
	require.NoError(t, err)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/codes?farmerId=other-farmer"},
		{http.MethodGet, "/api/codes/stats?farmerId=other-farmer"},
		{http.MethodPost, "/api/codes/redeem"},
		{http.MethodPost, "/api/codes/cleanup"},
	} {
		w := do(t, h, tc.method, tc.path, map[string]string{"code": code.Code, "farmerId": "other-farmer"})
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", tc.method, tc.path)
	}

	signUp(t, h)
	w := do(t, h, http.MethodPost, "/api/codes/redeem", map[string]string{"code": code.Code, "farmerId": "other-farmer"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodGet, "/api/codes?farmerId=other-farmer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["codes"])

	assert.Equal(t, domain.VerificationStats{Total: 1, Active: 1}, app.Codes.Stats("other-farmer"))
}

// ─── Advisory ───────────────────────────────────────────────────────────────

func TestChat_LocalAnswer(t *testing.T) {
	h, _ := setupServer(t)

	w := do(t, h, http.MethodPost, "/api/advisor/chat", map[string]string{"message": "How do I fix root rot?"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode(t, w)
	assert.Contains(t, resp["message"], "drainage")
	assert.EqualValues(t, 0.8, resp["confidence"])

	w = do(t, h, http.MethodGet, "/api/advisor/chat/history", nil)
	assert.Len(t, decode(t, w)["messages"], 3)

	w = do(t, h, http.MethodGet, "/api/advisor/calls", nil)
	assert.Len(t, decode(t, w)["calls"], 1)

	w = do(t, h, http.MethodDelete, "/api/advisor/chat/history", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(t, h, http.MethodGet, "/api/advisor/chat/history", nil)
	assert.Len(t, decode(t, w)["messages"], 1)
}

func TestChat_EmptyMessage(t *testing.T) {
	h, _ := setupServer(t)
	w := do(t, h, http.MethodPost, "/api/advisor/chat", map[string]string{"message": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClassify_Offline(t *testing.T) {
	h, _ := setupServer(t)
	w := do(t, h, http.MethodPost, "/api/advisor/classify", imageRequest{ImagePath: "leaf.jpg"})
	require.Equal(t, http.StatusOK, w.Code)
	prov := decode(t, w)["provenance"].(map[string]any)
	assert.Equal(t, "Local Analysis", prov["service"])

	w = do(t, h, http.MethodPost, "/api/advisor/classify", imageRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConfig_KeysNeverReturned(t *testing.T) {
	h, _ := setupServer(t)

	w := do(t, h, http.MethodPut, "/api/advisor/config", map[string]any{"openaiApiKey": "sk-secret", "enableRealTime": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "sk-secret")

	w = do(t, h, http.MethodGet, "/api/advisor/config", nil)
	cfg := decode(t, w)
	assert.Equal(t, true, cfg["openaiKeySet"])
	assert.Equal(t, false, cfg["plantnetKeySet"])
	assert.Equal(t, true, cfg["enableRealTime"])
}

func TestCalls_BadLimit(t *testing.T) {
	h, _ := setupServer(t)
	w := do(t, h, http.MethodGet, "/api/advisor/calls?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ─── Error mapping ──────────────────────────────────────────────────────────

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.Invalid("email", "is required"), http.StatusBadRequest},
		{domain.ErrInvalidVerificationCode, http.StatusBadRequest},
		{domain.ErrNotSignedIn, http.StatusUnauthorized},
		{domain.ErrAccountDeleted, http.StatusForbidden},
		{fmt.Errorf("wrap: %w", domain.ErrRewardNotFound), http.StatusNotFound},
		{domain.ErrInsufficientCredits, http.StatusConflict},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
