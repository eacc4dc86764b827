package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/marketplace-service/internal/api/http"
	"github.com/spec-kit/marketplace-service/internal/api/http/handlers"
	"github.com/spec-kit/marketplace-service/internal/auth"
	"github.com/spec-kit/marketplace-service/internal/domain"
	"github.com/spec-kit/marketplace-service/internal/events"
	"github.com/spec-kit/marketplace-service/internal/observability"
	"github.com/spec-kit/marketplace-service/internal/repository/memory"
	"github.com/spec-kit/marketplace-service/internal/service"
)

type memorySessions struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
}

func (m *memorySessions) Save(_ context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = *s
	return nil
}

func (m *memorySessions) Get(_ context.Context, id string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, auth.ErrSessionNotFound
	}
	return &s, nil
}

func (m *memorySessions) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func newTestApp(t *testing.T, deps map[string]handlers.Pinger) *fiber.App {
	t.Helper()
	store := memory.NewStore()
	sessions := &memorySessions{sessions: map[string]domain.Session{}}
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	dispatcher := events.NewInMemoryDispatcher(nil)
	metrics := observability.NewMetrics()

	accounts := service.NewAccountService(service.AccountDependencies{
		UserRepo:     store.Users(),
		Sessions:     sessions,
		TokenManager: tokens,
		Hasher:       auth.NewPasswordHasher(4),
	})
	catalog := service.NewCatalogService(service.CatalogDependencies{Store: store, Dispatcher: dispatcher})
	ledger := service.NewLedgerService(service.LedgerDependencies{Store: store, Dispatcher: dispatcher})

	app := httptransport.NewApp("marketplace-test")
	httptransport.RegisterMiddlewares(app, zap.NewNop(), metrics, time.Second)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler("marketplace-test", "test", deps, metrics),
		Users:          handlers.NewUsersHandler(accounts, ledger),
		Services:       handlers.NewServicesHandler(catalog),
		Transactions:   handlers.NewTransactionsHandler(ledger),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, sessions, store.Users()),
	})
	return app
}

type response struct {
	Status int
	Body   map[string]any
}

func (r response) data() map[string]any {
	data, _ := r.Body["data"].(map[string]any)
	return data
}

func (r response) list() []any {
	list, _ := r.Body["data"].([]any)
	return list
}

func (r response) errorCode() string {
	errBody, _ := r.Body["error"].(map[string]any)
	code, _ := errBody["code"].(string)
	return code
}

func call(t *testing.T, app *fiber.App, method, path string, body any, token string) response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := response{Status: resp.StatusCode, Body: map[string]any{}}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out.Body), string(raw))
	}
	return out
}

func signupAndLogin(t *testing.T, app *fiber.App, name, email string) string {
	t.Helper()
	resp := call(t, app, "POST", "/signup", map[string]any{
		"name": name, "email": email, "password": "secret", "confirmPassword": "secret",
	}, "")
	require.Equal(t, 201, resp.Status, resp.Body)

	resp = call(t, app, "POST", "/login", map[string]any{"email": email, "password": "secret"}, "")
	require.Equal(t, 200, resp.Status, resp.Body)
	token, _ := resp.data()["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func createService(t *testing.T, app *fiber.App, token string, price any) int64 {
	t.Helper()
	resp := call(t, app, "POST", "/services", map[string]any{
		"serviceName": "Logo", "serviceDescription": "vector logo", "category": "design",
		"price": price, "deadline": 5,
	}, token)
	require.Equal(t, 201, resp.Status, resp.Body)
	id, _ := resp.data()["id"].(float64)
	return int64(id)
}

func path(prefix string, id int64) string {
	return prefix + "/" + jsonNumber(id)
}

func jsonNumber(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func TestSignupStatusCodes(t *testing.T) {
	app := newTestApp(t, nil)

	resp := call(t, app, "POST", "/signup", map[string]any{
		"name": "Alice", "email": "A@x.com", "password": "p", "confirmPassword": "p",
	}, "")
	assert.Equal(t, 201, resp.Status)
	assert.Equal(t, "a@x.com", resp.data()["email"])

	resp = call(t, app, "POST", "/signup", map[string]any{
		"name": "Alice", "email": "a@x.com", "password": "p", "confirmPassword": "p",
	}, "")
	assert.Equal(t, 409, resp.Status)

	resp = call(t, app, "POST", "/signup", map[string]any{
		"name": "Bob", "email": "b@x.com", "password": "p", "confirmPassword": "q",
	}, "")
	assert.Equal(t, 422, resp.Status)

	resp = call(t, app, "POST", "/signup", map[string]any{"name": "Bob", "email": "not-an-email", "password": "p", "confirmPassword": "p"}, "")
	assert.Equal(t, 422, resp.Status)
	assert.Equal(t, "UNPROCESSABLE_ENTITY", resp.errorCode())
}

func TestSignupPasswordLengthCountsBytes(t *testing.T) {
	app := newTestApp(t, nil)
	long := strings.Repeat("é", 72)

	resp := call(t, app, "POST", "/signup", map[string]any{
		"name": "Eve", "email": "eve@x.com", "password": long, "confirmPassword": long,
	}, "")
	assert.Equal(t, 422, resp.Status, resp.Body)
	assert.Equal(t, "UNPROCESSABLE_ENTITY", resp.errorCode())

	ok := strings.Repeat("é", 36)
	resp = call(t, app, "POST", "/signup", map[string]any{
		"name": "Eve", "email": "eve@x.com", "password": ok, "confirmPassword": ok,
	}, "")
	assert.Equal(t, 201, resp.Status, resp.Body)
}

func TestLoginStatusCodes(t *testing.T) {
	app := newTestApp(t, nil)
	signupAndLogin(t, app, "Alice", "A@x.com")

	resp := call(t, app, "POST", "/login", map[string]any{"email": "a@X.com", "password": "secret"}, "")
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, "Alice", resp.data()["name"])
	assert.Equal(t, "0", resp.data()["earnings"])

	resp = call(t, app, "POST", "/login", map[string]any{"email": "nobody@x.com", "password": "secret"}, "")
	assert.Equal(t, 404, resp.Status)

	resp = call(t, app, "POST", "/login", map[string]any{"email": "a@x.com", "password": "wrong"}, "")
	assert.Equal(t, 401, resp.Status)

	resp = call(t, app, "POST", "/login", map[string]any{"email": "a@x.com"}, "")
	assert.Equal(t, 422, resp.Status)
}

func TestCreateServiceStatusCodes(t *testing.T) {
	app := newTestApp(t, nil)
	token := signupAndLogin(t, app, "Sam", "sam@x.com")
	body := map[string]any{"serviceName": "Logo", "category": "design", "price": 10, "deadline": 3}

	assert.Equal(t, 403, call(t, app, "POST", "/services", body, "").Status)
	assert.Equal(t, 401, call(t, app, "POST", "/services", body, "garbage").Status)

	bad := map[string]any{"serviceName": "Logo", "category": "design", "price": "ten", "deadline": 3}
	assert.Equal(t, 400, call(t, app, "POST", "/services", bad, token).Status)

	bad = map[string]any{"serviceName": "Logo", "category": "design", "price": 10, "deadline": "soon"}
	assert.Equal(t, 400, call(t, app, "POST", "/services", bad, token).Status)

	bad = map[string]any{"serviceName": "Logo", "price": 10, "deadline": 3}
	assert.Equal(t, 422, call(t, app, "POST", "/services", bad, token).Status)

	for _, price := range []any{"10.123", 1e11, "10000000000"} {
		bad = map[string]any{"serviceName": "Logo", "category": "design", "price": price, "deadline": 3}
		assert.Equal(t, 400, call(t, app, "POST", "/services", bad, token).Status, "price %v", price)
	}

	bad = map[string]any{"serviceName": "Logo", "category": "design", "price": 10, "deadline": 3000000000}
	assert.Equal(t, 400, call(t, app, "POST", "/services", bad, token).Status)

	resp := call(t, app, "POST", "/services", body, token)
	assert.Equal(t, 201, resp.Status)
	assert.Equal(t, "Sam", resp.data()["creator"])
	assert.Equal(t, true, resp.data()["isActive"])
}

func TestPurchaseDeliverCancelScenario(t *testing.T) {
	app := newTestApp(t, nil)
	seller := signupAndLogin(t, app, "Sam", "sam@x.com")
	buyer := signupAndLogin(t, app, "Bea", "bea@x.com")
	id := createService(t, app, seller, 10)

	resp := call(t, app, "POST", path("/services/buy", id), map[string]any{"serviceQtd": 3, "transactionPrice": 1}, buyer)
	require.Equal(t, 201, resp.Status, resp.Body)
	assert.Equal(t, "30", resp.data()["transactionPrice"])
	assert.Equal(t, "In progress", resp.data()["transactionStatus"])
	assert.Equal(t, "Sam", resp.data()["seller"])

	resp = call(t, app, "POST", path("/services/deliver", id), nil, "")
	require.Equal(t, 200, resp.Status, resp.Body)
	assert.Equal(t, "30", resp.data()["sellerEarnings"])

	resp = call(t, app, "POST", path("/services/cancel", id), map[string]any{"buyer": "bea@x.com"}, "")
	assert.Equal(t, 404, resp.Status)

	resp = call(t, app, "GET", "/earnings", nil, seller)
	require.Equal(t, 200, resp.Status)
	assert.Equal(t, "30", resp.data()["earnings"])

	resp = call(t, app, "GET", "/services/transactions/Bea", nil, "")
	require.Equal(t, 200, resp.Status)
	assert.Len(t, resp.list(), 1)
}

func TestPurchaseValidation(t *testing.T) {
	app := newTestApp(t, nil)
	seller := signupAndLogin(t, app, "Sam", "sam@x.com")
	buyer := signupAndLogin(t, app, "Bea", "bea@x.com")
	id := createService(t, app, seller, "12.50")

	assert.Equal(t, 403, call(t, app, "POST", path("/services/buy", id), map[string]any{"serviceQtd": 1}, "").Status)
	assert.Equal(t, 400, call(t, app, "POST", path("/services/buy", id), map[string]any{"serviceQtd": "two"}, buyer).Status)
	assert.Equal(t, 400, call(t, app, "POST", path("/services/buy", id), map[string]any{"serviceQtd": 1.5}, buyer).Status)
	assert.Equal(t, 400, call(t, app, "POST", path("/services/buy", id), map[string]any{"serviceQtd": 0}, buyer).Status)
	assert.Equal(t, 400, call(t, app, "POST", path("/services/buy", id), map[string]any{"serviceQtd": 3000000000}, buyer).Status)
	assert.Equal(t, 422, call(t, app, "POST", path("/services/buy", id), map[string]any{}, buyer).Status)
	assert.Equal(t, 404, call(t, app, "POST", "/services/buy/999", map[string]any{"serviceQtd": 1}, buyer).Status)
	assert.Equal(t, 404, call(t, app, "POST", "/services/buy/abc", map[string]any{"serviceQtd": 1}, buyer).Status)

	resp := call(t, app, "POST", path("/services/buy", id), map[string]any{"serviceQtd": "2"}, buyer)
	require.Equal(t, 201, resp.Status)
	assert.Equal(t, "25", resp.data()["transactionPrice"])
}

func TestPurchaseTotalMustFitPriceColumn(t *testing.T) {
	app := newTestApp(t, nil)
	seller := signupAndLogin(t, app, "Sam", "sam@x.com")
	buyer := signupAndLogin(t, app, "Bea", "bea@x.com")
	id := createService(t, app, seller, "9999999999")

	resp := call(t, app, "POST", path("/services/buy", id), map[string]any{"serviceQtd": 1000}, buyer)
	assert.Equal(t, 400, resp.Status, resp.Body)
	assert.Equal(t, "VALIDATION_FAILED", resp.errorCode())
	assert.Empty(t, call(t, app, "GET", "/services/transactions/Bea", nil, "").list())
}

func TestCancelScopedToBuyer(t *testing.T) {
	app := newTestApp(t, nil)
	seller := signupAndLogin(t, app, "Sam", "sam@x.com")
	buyer := signupAndLogin(t, app, "Bea", "bea@x.com")
	id := createService(t, app, seller, 10)
	require.Equal(t, 201, call(t, app, "POST", path("/services/buy", id), map[string]any{"serviceQtd": 1}, buyer).Status)

	assert.Equal(t, 422, call(t, app, "POST", path("/services/cancel", id), map[string]any{}, "").Status)
	assert.Equal(t, 404, call(t, app, "POST", path("/services/cancel", id), map[string]any{"buyer": "sam@x.com"}, "").Status)
	assert.Equal(t, 404, call(t, app, "POST", path("/services/cancel", id), map[string]any{"buyer": "Bea"}, "").Status, "buyer is matched by email")

	resp := call(t, app, "POST", path("/services/cancel", id), map[string]any{"buyer": "Bea@x.com"}, "")
	require.Equal(t, 200, resp.Status)
	transaction, _ := resp.data()["transaction"].(map[string]any)
	assert.Equal(t, "Canceled", transaction["transactionStatus"])
	_, credited := resp.data()["sellerEarnings"]
	assert.False(t, credited)

	assert.Equal(t, 404, call(t, app, "POST", path("/services/deliver", id), nil, "").Status)
}

func TestDeactivateThenPurchaseIsNotFound(t *testing.T) {
	app := newTestApp(t, nil)
	seller := signupAndLogin(t, app, "Sam", "sam@x.com")
	other := signupAndLogin(t, app, "Oz", "oz@x.com")
	id := createService(t, app, seller, 10)

	assert.Equal(t, 403, call(t, app, "POST", path("/services/deactivate", id), nil, "").Status)
	assert.Equal(t, 404, call(t, app, "POST", path("/services/deactivate", id), nil, other).Status)
	assert.Equal(t, 404, call(t, app, "POST", path("/services/activate", id), nil, seller).Status)

	resp := call(t, app, "POST", path("/services/deactivate", id), nil, seller)
	require.Equal(t, 200, resp.Status)
	assert.Equal(t, false, resp.data()["isActive"])

	assert.Equal(t, 404, call(t, app, "POST", path("/services/buy", id), map[string]any{"serviceQtd": 1}, other).Status)
	assert.Empty(t, call(t, app, "GET", "/services", nil, "").list())
	assert.Len(t, call(t, app, "GET", "/services/sam@x.com", nil, "").list(), 1)

	require.Equal(t, 200, call(t, app, "POST", path("/services/activate", id), nil, seller).Status)
	assert.Len(t, call(t, app, "GET", "/services", nil, "").list(), 1)
}

func TestListByCreatorName(t *testing.T) {
	app := newTestApp(t, nil)
	seller := signupAndLogin(t, app, "Sam", "sam@x.com")
	signupAndLogin(t, app, "Ida", "ida@x.com")
	createService(t, app, seller, 10)

	assert.Equal(t, 404, call(t, app, "GET", "/services/user/Nobody", nil, "").Status)

	resp := call(t, app, "GET", "/services/user/Ida", nil, "")
	assert.Equal(t, 200, resp.Status)
	assert.Empty(t, resp.list())
	assert.NotEmpty(t, resp.Body["message"])

	resp = call(t, app, "GET", "/services/user/Sam", nil, "")
	assert.Equal(t, 200, resp.Status)
	assert.Len(t, resp.list(), 1)
}

func TestLogoutRevokesToken(t *testing.T) {
	app := newTestApp(t, nil)
	token := signupAndLogin(t, app, "Sam", "sam@x.com")

	assert.Equal(t, 200, call(t, app, "GET", "/earnings", nil, token).Status)
	assert.Equal(t, 200, call(t, app, "POST", "/logout", nil, token).Status)
	assert.Equal(t, 401, call(t, app, "GET", "/earnings", nil, token).Status)
}

func TestHealthAndUnknownRoutes(t *testing.T) {
	app := newTestApp(t, map[string]handlers.Pinger{
		"postgres": pingFunc(func(context.Context) error { return nil }),
		"redis":    pingFunc(func(context.Context) error { return errors.New("connection refused") }),
	})

	assert.Equal(t, 200, call(t, app, "GET", "/health/live", nil, "").Status)

	resp := call(t, app, "GET", "/health/ready", nil, "")
	assert.Equal(t, 503, resp.Status)
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", resp.errorCode())

	resp = call(t, app, "GET", "/nowhere/at/all", nil, "")
	assert.Equal(t, 404, resp.Status)
	assert.Equal(t, "NOT_FOUND", resp.errorCode())

	resp = call(t, app, "GET", "/metrics", nil, "")
	assert.Equal(t, 200, resp.Status)
	assert.NotNil(t, resp.data()["requests"])
}
