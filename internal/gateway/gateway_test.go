package gateway

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gatewarden/gatewarden/internal/audit"
	"github.com/gatewarden/gatewarden/internal/auth"
	"github.com/gatewarden/gatewarden/internal/challenge"
	"github.com/gatewarden/gatewarden/internal/config"
	"github.com/gatewarden/gatewarden/internal/database"
	"github.com/gatewarden/gatewarden/internal/identity"
	"github.com/gatewarden/gatewarden/internal/models"
	"github.com/gatewarden/gatewarden/internal/notify"
	"github.com/gatewarden/gatewarden/internal/store"
)

type gatewayTestEnv struct {
	db         *gorm.DB
	router     *gin.Engine
	routes     *store.RouteStore
	identities *store.IdentityStore
	settings   *store.SettingsStore
}

func setupGatewayTest(t *testing.T, admin http.Handler) *gatewayTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	cfg := config.Config{
		Environment:        "test",
		BaseDomain:         "example.com",
		AdminSubdomain:     "admin",
		CookieSecret:       "gateway-test-secret",
		CookieTTLHours:     24,
		BlockedStatus:      http.StatusUnauthorized,
		ForwardTimeoutSecs: 5,
	}

	routeStore := store.NewRouteStore(db)
	identityStore := store.NewIdentityStore(db)
	settingsStore := store.NewSettingsStore(db)

	engine := challenge.NewEngine(&challenge.Deps{
		State:     store.NewStateStore(db),
		Solved:    store.NewSolvedStore(db),
		Operators: store.NewOperatorStore(db),
		Verifier:  auth.NewVerifier(),
		Notifier:  notify.NewDispatcher(db),
		Audit:     audit.NewLogger(db),
		HTTP:      http.DefaultClient,
		Now:       time.Now,
	})
	resolver := identity.NewResolver(identityStore, cfg.CookieSecret, 24*time.Hour, cfg.BaseDomain, false)

	gw := New(cfg, routeStore, settingsStore, resolver, engine, admin)
	return &gatewayTestEnv{
		db:         db,
		router:     gw.Router(80),
		routes:     routeStore,
		identities: identityStore,
		settings:   settingsStore,
	}
}

func (env *gatewayTestEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == identity.CookieName {
			return ck
		}
	}
	return nil
}

func newBackend(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGateway_UnknownHostNotFound(t *testing.T) {
	env := setupGatewayTest(t, nil)

	rec := env.do(httptest.NewRequest(http.MethodGet, "http://nowhere.example.com/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGateway_ZeroStepRouteForwardsWithoutIdentity(t *testing.T) {
	env := setupGatewayTest(t, nil)
	backend := newBackend(t, "backend says hi")

	require.NoError(t, env.routes.Create(&models.ProxyRoute{
		Enabled: true, Subdomain: "open", Destination: backend.URL,
	}))

	rec := env.do(httptest.NewRequest(http.MethodGet, "http://open.example.com/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "backend says hi", rec.Body.String())

	// No identity is minted and no cookie is issued for open routes.
	assert.Nil(t, sessionCookie(rec))
	idents, err := env.identities.List(0)
	require.NoError(t, err)
	assert.Empty(t, idents)
}

func TestGateway_KillSwitchDisablesForwarding(t *testing.T) {
	env := setupGatewayTest(t, nil)
	backend := newBackend(t, "ok")

	require.NoError(t, env.routes.Create(&models.ProxyRoute{
		Enabled: true, Subdomain: "open", Destination: backend.URL,
	}))

	require.NoError(t, env.settings.SetBool(models.SettingForwardingEnabled, false))
	rec := env.do(httptest.NewRequest(http.MethodGet, "http://open.example.com/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, env.settings.SetBool(models.SettingForwardingEnabled, true))
	rec = env.do(httptest.NewRequest(http.MethodGet, "http://open.example.com/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGateway_ChallengePageForPendingStep(t *testing.T) {
	env := setupGatewayTest(t, nil)
	backend := newBackend(t, "secret backend")

	require.NoError(t, env.routes.Create(&models.ProxyRoute{
		Enabled: true, Subdomain: "app", Title: "App", Destination: backend.URL,
		AuthSteps: []models.AuthStep{
			{ChallengeTypeID: challenge.TypeLogin, Config: `{"username":"u","password":"p"}`},
		},
	}))

	rec := env.do(httptest.NewRequest(http.MethodGet, "http://app.example.com/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	body := rec.Body.String()
	assert.Contains(t, body, "gw-challenge-data")
	assert.Contains(t, body, challenge.TypeLogin)
	assert.Contains(t, body, `"state":"pending"`)
	assert.NotContains(t, body, "secret backend")

	require.NotNil(t, sessionCookie(rec))
}

func TestGateway_ActionSolveThenForward(t *testing.T) {
	env := setupGatewayTest(t, nil)
	backend := newBackend(t, "welcome in")

	require.NoError(t, env.routes.Create(&models.ProxyRoute{
		Enabled: true, Subdomain: "app", Destination: backend.URL,
		AuthSteps: []models.AuthStep{
			{ChallengeTypeID: challenge.TypeLogin, Config: `{"username":"alice","password":"pw"}`},
		},
	}))

	rec := env.do(httptest.NewRequest(http.MethodGet, "http://app.example.com/", nil))
	ck := sessionCookie(rec)
	require.NotNil(t, ck)

	// Wrong credentials: HTTP 200, protocol-level failure.
	req := httptest.NewRequest(http.MethodPost, "http://app.example.com/proxyAuth/api/ProxyChallengeTypeLogin/verifyLogin",
		strings.NewReader(`{"username":"alice","password":"nope"}`))
	req.AddCookie(ck)
	rec = env.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)

	req = httptest.NewRequest(http.MethodPost, "http://app.example.com/proxyAuth/api/ProxyChallengeTypeLogin/verifyLogin",
		strings.NewReader(`{"username":"alice","password":"pw"}`))
	req.AddCookie(ck)
	rec = env.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)

	// Solved: the next page load forwards.
	req = httptest.NewRequest(http.MethodGet, "http://app.example.com/", nil)
	req.AddCookie(ck)
	rec = env.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "welcome in", rec.Body.String())
}

func TestGateway_ActionRequiresPost(t *testing.T) {
	env := setupGatewayTest(t, nil)

	require.NoError(t, env.routes.Create(&models.ProxyRoute{
		Enabled: true, Subdomain: "app", Destination: "http://10.0.0.1:8080",
		AuthSteps: []models.AuthStep{
			{ChallengeTypeID: challenge.TypeLogin, Config: `{"username":"u","password":"p"}`},
		},
	}))

	rec := env.do(httptest.NewRequest(http.MethodGet, "http://app.example.com/", nil))
	ck := sessionCookie(rec)
	require.NotNil(t, ck)

	req := httptest.NewRequest(http.MethodGet, "http://app.example.com/proxyAuth/api/ProxyChallengeTypeLogin/verifyLogin", nil)
	req.AddCookie(ck)
	rec = env.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "actions require POST")
}

func TestGateway_SecretQueryAutoSolveForwards(t *testing.T) {
	env := setupGatewayTest(t, nil)
	backend := newBackend(t, "auto in")

	require.NoError(t, env.routes.Create(&models.ProxyRoute{
		Enabled: true, Subdomain: "app", Destination: backend.URL,
		AuthSteps: []models.AuthStep{
			{ChallengeTypeID: challenge.TypeSecretQueryString, Config: `{"secret":"test"}`},
		},
	}))

	// The secret in the query solves on first contact and forwards.
	rec := env.do(httptest.NewRequest(http.MethodGet, "http://app.example.com/?secret=test", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "auto in", rec.Body.String())
	ck := sessionCookie(rec)
	require.NotNil(t, ck)

	// The solve sticks to the identity, not the query string.
	req := httptest.NewRequest(http.MethodGet, "http://app.example.com/", nil)
	req.AddCookie(ck)
	rec = env.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "auto in", rec.Body.String())
}

func TestGateway_BlockedClient(t *testing.T) {
	env := setupGatewayTest(t, nil)
	backend := newBackend(t, "ok")

	require.NoError(t, env.routes.Create(&models.ProxyRoute{
		Enabled: true, Subdomain: "app", Destination: backend.URL,
		AuthSteps: []models.AuthStep{
			{ChallengeTypeID: challenge.TypeLogin, Config: `{"username":"u","password":"p"}`},
		},
	}))

	rec := env.do(httptest.NewRequest(http.MethodGet, "http://app.example.com/", nil))
	ck := sessionCookie(rec)
	require.NotNil(t, ck)

	idents, err := env.identities.List(0)
	require.NoError(t, err)
	require.Len(t, idents, 1)
	require.NoError(t, env.identities.SetBlocked(idents[0].ID, true, "naughty"))

	req := httptest.NewRequest(http.MethodGet, "http://app.example.com/", nil)
	req.AddCookie(ck)
	rec = env.do(req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "naughty")
}

func TestGateway_NonGetWithoutCookieNotFound(t *testing.T) {
	env := setupGatewayTest(t, nil)

	require.NoError(t, env.routes.Create(&models.ProxyRoute{
		Enabled: true, Subdomain: "app", Destination: "http://10.0.0.1:8080",
		AuthSteps: []models.AuthStep{
			{ChallengeTypeID: challenge.TypeLogin, Config: `{"username":"u","password":"p"}`},
		},
	}))

	rec := env.do(httptest.NewRequest(http.MethodPost, "http://app.example.com/submit", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGateway_AdminSubdomainBypass(t *testing.T) {
	admin := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("admin-ok"))
	})
	env := setupGatewayTest(t, admin)

	rec := env.do(httptest.NewRequest(http.MethodGet, "http://admin.example.com/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin-ok", rec.Body.String())
}

func TestSubdomainExtraction(t *testing.T) {
	gw := &Gateway{cfg: config.Config{BaseDomain: "example.com"}}

	assert.Equal(t, "app", gw.subdomain("app.example.com"))
	assert.Equal(t, "a.b", gw.subdomain("a.b.example.com"))
	assert.Equal(t, "", gw.subdomain("example.com"))
	// Hosts outside the base domain fall back to their first label.
	assert.Equal(t, "app", gw.subdomain("app.other.net"))
}

func TestIsLocalIP(t *testing.T) {
	assert.True(t, isLocalIP("127.0.0.1"))
	assert.True(t, isLocalIP("10.1.2.3"))
	assert.True(t, isLocalIP("192.168.0.10"))
	assert.True(t, isLocalIP("::1"))
	assert.False(t, isLocalIP("203.0.113.9"))
	assert.False(t, isLocalIP("localhost"))
	assert.False(t, isLocalIP(""))
}

func TestStripSessionCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://app.example.com/", nil)
	req.AddCookie(&http.Cookie{Name: identity.CookieName, Value: "token"})
	req.AddCookie(&http.Cookie{Name: "app_session", Value: "keep-me"})

	stripSessionCookie(req)

	header := req.Header.Get("Cookie")
	assert.NotContains(t, header, identity.CookieName)
	assert.Contains(t, header, "app_session=keep-me")
}
