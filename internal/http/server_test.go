package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/googleauth"
	"fintrack/internal/services"
	"fintrack/internal/storage/jsonfile"
)

type captureNotifier struct {
	codes map[string]string
}

func (c *captureNotifier) PublishResetEmail(_ context.Context, email, code, _ string) error {
	c.codes[email] = code
	return nil
}

type cannedCompleter struct {
	reply string
}

func (c *cannedCompleter) Complete(_ context.Context, _, _ string) (string, error) {
	return c.reply, nil
}

type testEnv struct {
	ts       *httptest.Server
	client   *http.Client
	notifier *captureNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := jsonfile.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	notifier := &captureNotifier{codes: make(map[string]string)}

	identity := services.NewIdentityService(store.Users(), store.ResetCodes(), notifier)
	ledger := services.NewLedgerService(store.Transactions(), store.Budgets())
	advice := services.NewAdviceService(ledger, &cannedCompleter{reply: "save 20% of income"})
	sessions := auth.NewSessions([]byte("test-secret"), time.Hour)

	srv := NewServer(":0", identity, ledger, advice, sessions, googleauth.NewProvider("", "", ""))
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &testEnv{ts: ts, client: client, notifier: notifier}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.ts.URL+path, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		var raw any
		if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		// Non-object responses (e.g. arrays) yield a nil map; callers
		// that need them decode the body themselves.
		decoded, _ = raw.(map[string]any)
	}
	return resp, decoded
}

func (e *testEnv) register(t *testing.T) {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/api/register", map[string]string{
		"email": "alice@example.com", "password": "secret1", "name": "Alice", "phone": "5551234567",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("register status %d: %v", resp.StatusCode, body)
	}
}

func TestRegisterAndCheckAuth(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.do(t, http.MethodGet, "/api/check-auth", nil)
	if resp.StatusCode != http.StatusOK || body["authenticated"] != false {
		t.Fatalf("fresh client must be unauthenticated, got %v", body)
	}

	e.register(t)

	resp, body = e.do(t, http.MethodGet, "/api/check-auth", nil)
	if resp.StatusCode != http.StatusOK || body["authenticated"] != true {
		t.Fatalf("check-auth after register: %v", body)
	}
	user, _ := body["user"].(map[string]any)
	if user["email"] != "alice@example.com" || user["name"] != "Alice" {
		t.Errorf("user payload = %v", user)
	}
}

func TestRegisterValidationMessages(t *testing.T) {
	e := newTestEnv(t)

	tests := []struct {
		name    string
		payload map[string]string
		message string
	}{
		{"missing fields", map[string]string{"email": "a@b.com"}, "All fields are required"},
		{"bad email", map[string]string{"email": "nope", "password": "secret1", "name": "A", "phone": "5551234567"}, "Invalid email format"},
		{"short password", map[string]string{"email": "a@b.com", "password": "123", "name": "A", "phone": "5551234567"}, "Password must be at least 6 characters"},
		{"short phone", map[string]string{"email": "a@b.com", "password": "secret1", "name": "A", "phone": "12"}, "Invalid phone number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := e.do(t, http.MethodPost, "/api/register", tt.payload)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d", resp.StatusCode)
			}
			if body["message"] != tt.message {
				t.Errorf("message = %q, want %q", body["message"], tt.message)
			}
		})
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	e := newTestEnv(t)
	e.register(t)

	resp, body := e.do(t, http.MethodPost, "/api/login", map[string]string{
		"email": "alice@example.com", "password": "wrong",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
	if body["message"] != "Invalid email or password" {
		t.Errorf("message = %q", body["message"])
	}

	resp, body = e.do(t, http.MethodPost, "/api/login", map[string]string{
		"email": "ghost@example.com", "password": "whatever",
	})
	if resp.StatusCode != http.StatusUnauthorized || body["message"] != "Invalid email or password" {
		t.Errorf("unknown email must be indistinguishable: %d %v", resp.StatusCode, body)
	}
}

func TestProtectedEndpointsRequireLogin(t *testing.T) {
	e := newTestEnv(t)

	paths := []struct{ method, path string }{
		{http.MethodGet, "/api/transactions"},
		{http.MethodPost, "/api/transactions"},
		{http.MethodGet, "/api/budgets"},
		{http.MethodGet, "/api/summary"},
		{http.MethodGet, "/api/budget-status"},
		{http.MethodGet, "/api/reports"},
		{http.MethodPost, "/api/financial-advice"},
	}
	for _, p := range paths {
		resp, body := e.do(t, p.method, p.path, map[string]string{})
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s %s: status = %d, want 401", p.method, p.path, resp.StatusCode)
		}
		if body["message"] != "Please login first" {
			t.Errorf("%s %s: message = %q", p.method, p.path, body["message"])
		}
	}
}

func TestTransactionLifecycle(t *testing.T) {
	e := newTestEnv(t)
	e.register(t)

	resp, body := e.do(t, http.MethodPost, "/api/transactions", map[string]any{
		"type": "income", "amount": 1000,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d: %v", resp.StatusCode, body)
	}
	if body["id"] != float64(1) || body["amount"] != float64(1000) {
		t.Errorf("created = %v", body)
	}
	if body["date"] != time.Now().Format("2006-01-02") {
		t.Errorf("date %v must default to today", body["date"])
	}

	resp, body = e.do(t, http.MethodPost, "/api/transactions", map[string]any{
		"type": "expense", "amount": 0,
	})
	if resp.StatusCode != http.StatusBadRequest || body["message"] != "Invalid amount" {
		t.Errorf("zero amount: %d %v", resp.StatusCode, body)
	}

	resp, _ = e.do(t, http.MethodDelete, "/api/transactions/1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("delete status = %d", resp.StatusCode)
	}
	resp, body = e.do(t, http.MethodDelete, "/api/transactions/1", nil)
	if resp.StatusCode != http.StatusNotFound || body["message"] != "Transaction not found" {
		t.Errorf("double delete: %d %v", resp.StatusCode, body)
	}
}

func TestBudgetDuplicateRejected(t *testing.T) {
	e := newTestEnv(t)
	e.register(t)

	resp, _ := e.do(t, http.MethodPost, "/api/budgets", map[string]any{
		"category": "food", "limit": 200, "month": "2026-08",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}

	resp, body := e.do(t, http.MethodPost, "/api/budgets", map[string]any{
		"category": "food", "limit": 300, "month": "2026-08",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("duplicate status = %d", resp.StatusCode)
	}
	if body["message"] != "A budget for this category and month already exists" {
		t.Errorf("message = %q", body["message"])
	}
}

func TestSummaryAndBudgetStatus(t *testing.T) {
	e := newTestEnv(t)
	e.register(t)

	for _, tx := range []map[string]any{
		{"type": "income", "amount": 1000},
		{"type": "expense", "amount": 250, "category": "food"},
	} {
		if resp, body := e.do(t, http.MethodPost, "/api/transactions", tx); resp.StatusCode != http.StatusCreated {
			t.Fatalf("create transaction: %d %v", resp.StatusCode, body)
		}
	}

	resp, body := e.do(t, http.MethodGet, "/api/summary", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("summary status = %d", resp.StatusCode)
	}
	if body["income"] != float64(1000) || body["expenses"] != float64(250) || body["balance"] != float64(750) || body["transaction_count"] != float64(2) {
		t.Errorf("summary = %v", body)
	}

	month := time.Now().Format("2006-01")
	if resp, b := e.do(t, http.MethodPost, "/api/budgets", map[string]any{"category": "food", "limit": 200, "month": month}); resp.StatusCode != http.StatusCreated {
		t.Fatalf("create budget: %d %v", resp.StatusCode, b)
	}

	resp, body = e.do(t, http.MethodGet, "/api/budget-status", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("budget-status status = %d", resp.StatusCode)
	}
	budgets, _ := body["budgets"].([]any)
	if len(budgets) != 1 {
		t.Fatalf("budgets = %v", body)
	}
	entry, _ := budgets[0].(map[string]any)
	if entry["spent"] != float64(250) || entry["remaining"] != float64(-50) {
		t.Errorf("status entry = %v", entry)
	}
}

func TestReportsShape(t *testing.T) {
	e := newTestEnv(t)
	e.register(t)

	if resp, body := e.do(t, http.MethodPost, "/api/transactions", map[string]any{
		"type": "expense", "amount": 40, "category": "food",
	}); resp.StatusCode != http.StatusCreated {
		t.Fatalf("create transaction: %d %v", resp.StatusCode, body)
	}

	resp, body := e.do(t, http.MethodGet, "/api/reports", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reports status = %d", resp.StatusCode)
	}
	trend, _ := body["monthly_trend"].([]any)
	if len(trend) != 6 {
		t.Fatalf("trend has %d entries: %v", len(trend), body)
	}
	last, _ := trend[5].(map[string]any)
	if last["month"] != time.Now().Format("2006-01") {
		t.Errorf("last bucket = %v, want current month", last["month"])
	}
	cats, _ := body["categories"].(map[string]any)
	if cats["food"] != float64(40) {
		t.Errorf("categories = %v", cats)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	e := newTestEnv(t)
	e.register(t)

	resp, body := e.do(t, http.MethodPost, "/api/forgot-password", map[string]string{"email": "ghost@example.com"})
	if resp.StatusCode != http.StatusNotFound || body["message"] != "Email not found" {
		t.Errorf("unknown email: %d %v", resp.StatusCode, body)
	}

	resp, body = e.do(t, http.MethodPost, "/api/forgot-password", map[string]string{"email": "alice@example.com"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("forgot-password: %d %v", resp.StatusCode, body)
	}
	if body["phone"] != "4567" {
		t.Errorf("phone hint = %v", body["phone"])
	}
	code := e.notifier.codes["alice@example.com"]
	if len(code) != 6 {
		t.Fatalf("captured code %q", code)
	}

	resp, body = e.do(t, http.MethodPost, "/api/verify-otp", map[string]string{
		"email": "alice@example.com", "otp": "000000", "new_password": "newpass1",
	})
	if resp.StatusCode != http.StatusBadRequest || body["message"] != "Invalid OTP" {
		t.Errorf("wrong code: %d %v", resp.StatusCode, body)
	}

	resp, body = e.do(t, http.MethodPost, "/api/verify-otp", map[string]string{
		"email": "alice@example.com", "otp": code, "new_password": "newpass1",
	})
	if resp.StatusCode != http.StatusOK || body["message"] != "Password reset successful" {
		t.Fatalf("verify-otp: %d %v", resp.StatusCode, body)
	}

	resp, _ = e.do(t, http.MethodPost, "/api/login", map[string]string{
		"email": "alice@example.com", "password": "newpass1",
	})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("login with new password: %d", resp.StatusCode)
	}
}

func TestFinancialAdvice(t *testing.T) {
	e := newTestEnv(t)
	e.register(t)

	resp, body := e.do(t, http.MethodPost, "/api/financial-advice", map[string]string{"query": "   "})
	if resp.StatusCode != http.StatusBadRequest || body["message"] != "Please enter a question" {
		t.Errorf("blank query: %d %v", resp.StatusCode, body)
	}

	resp, body = e.do(t, http.MethodPost, "/api/financial-advice", map[string]string{"query": "how to save?"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("advice status = %d: %v", resp.StatusCode, body)
	}
	if body["advice"] != "save 20% of income" {
		t.Errorf("advice = %v", body["advice"])
	}
}

func TestGoogleLoginUnconfigured(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.do(t, http.MethodGet, "/api/google-login", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
	if body["message"] != "Google sign-in is not configured" {
		t.Errorf("message = %q", body["message"])
	}
}

func TestGoogleAuthorizeStateMismatch(t *testing.T) {
	e := newTestEnv(t)

	resp, _ := e.do(t, http.MethodGet, "/google-authorize?state=bogus&code=x", nil)
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want redirect", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/?error=google-auth-failed" {
		t.Errorf("redirect = %q", loc)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	e := newTestEnv(t)
	e.register(t)

	resp, body := e.do(t, http.MethodPost, "/api/logout", nil)
	if resp.StatusCode != http.StatusOK || body["message"] != "Logged out successfully" {
		t.Fatalf("logout: %d %v", resp.StatusCode, body)
	}

	resp, body = e.do(t, http.MethodGet, "/api/summary", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("after logout: status = %d, want 401 (%v)", resp.StatusCode, body)
	}
}

func TestHealthEndpoints(t *testing.T) {
	e := newTestEnv(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := e.client.Get(e.ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s status = %d", path, resp.StatusCode)
		}
	}
}

func TestUsersAreIsolated(t *testing.T) {
	e := newTestEnv(t)
	e.register(t)

	if resp, body := e.do(t, http.MethodPost, "/api/transactions", map[string]any{"type": "income", "amount": 500}); resp.StatusCode != http.StatusCreated {
		t.Fatalf("create transaction: %d %v", resp.StatusCode, body)
	}

	// Second client, second account.
	jar, _ := cookiejar.New(nil)
	other := &testEnv{ts: e.ts, client: &http.Client{Jar: jar}, notifier: e.notifier}
	resp, body := other.do(t, http.MethodPost, "/api/register", map[string]string{
		"email": "bob@example.com", "password": "secret2", "name": "Bob", "phone": "5559876543",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("register bob: %d %v", resp.StatusCode, body)
	}

	resp, _ = other.do(t, http.MethodGet, "/api/transactions", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, e.ts.URL+"/api/transactions", nil)
	listResp, err := other.client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer listResp.Body.Close()
	var list []any
	if err := json.NewDecoder(listResp.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("bob sees %d of alice's transactions", len(list))
	}

	// Bob cannot delete alice's entry either.
	resp, _ = other.do(t, http.MethodDelete, "/api/transactions/1", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("cross-user delete status = %d, want 404", resp.StatusCode)
	}
}
