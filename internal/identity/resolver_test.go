package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gatewarden/gatewarden/internal/models"
	"github.com/gatewarden/gatewarden/internal/store"
)

const testSecret = "resolver-test-secret"

func setupResolverTest(t *testing.T) (*Resolver, *store.IdentityStore, *time.Time) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ClientIdentity{}))

	identities := store.NewIdentityStore(db)
	r := NewResolver(identities, testSecret, 24*time.Hour, "example.com", false)

	now := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }
	return r, identities, &now
}

func resolverTestContext(method, target string, cookie string) (*gin.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, target, nil)
	c.Request.Header.Set("User-Agent", "test-agent")
	if cookie != "" {
		c.Request.AddCookie(&http.Cookie{Name: CookieName, Value: cookie})
	}
	return c, rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == CookieName {
			return ck
		}
	}
	return nil
}

func TestResolver_MintsIdentityForEligibleGet(t *testing.T) {
	r, identities, _ := setupResolverTest(t)

	c, rec := resolverTestContext(http.MethodGet, "http://app.example.com/", "")
	identity, isNew := r.Resolve(c)
	require.NotNil(t, identity)
	assert.True(t, isNew)
	assert.NotEmpty(t, identity.ID)

	// The record is persisted and the cookie carries the GUID.
	stored, err := identities.Get(identity.ID)
	require.NoError(t, err)
	assert.Equal(t, "test-agent", stored.UserAgent)

	ck := sessionCookie(t, rec)
	require.NotNil(t, ck)
	assert.True(t, ck.HttpOnly)
	assert.Equal(t, "example.com", ck.Domain)

	id, err := unsealIdentity([]byte(testSecret), ck.Value)
	require.NoError(t, err)
	assert.Equal(t, identity.ID, id)
}

func TestResolver_IneligibleRequestsMintNothing(t *testing.T) {
	r, _, _ := setupResolverTest(t)

	cases := []struct {
		name   string
		method string
		target string
	}{
		{"post", http.MethodPost, "http://app.example.com/"},
		{"favicon", http.MethodGet, "http://app.example.com/favicon.ico"},
		{"robots", http.MethodGet, "http://app.example.com/robots.txt"},
		{"well-known", http.MethodGet, "http://app.example.com/.well-known/security.txt"},
		{"applet", http.MethodGet, "http://app.example.com/applet/ping"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := resolverTestContext(tc.method, tc.target, "")
			identity, isNew := r.Resolve(c)
			assert.Nil(t, identity)
			assert.False(t, isNew)
			assert.Nil(t, sessionCookie(t, rec))
		})
	}
}

func TestResolver_ResolvesExistingCookie(t *testing.T) {
	r, _, _ := setupResolverTest(t)

	c, rec := resolverTestContext(http.MethodGet, "http://app.example.com/", "")
	minted, _ := r.Resolve(c)
	require.NotNil(t, minted)
	ck := sessionCookie(t, rec)
	require.NotNil(t, ck)

	// The cookie resolves even on requests that could not mint.
	c, _ = resolverTestContext(http.MethodPost, "http://app.example.com/submit", ck.Value)
	identity, isNew := r.Resolve(c)
	require.NotNil(t, identity)
	assert.False(t, isNew)
	assert.Equal(t, minted.ID, identity.ID)
}

func TestResolver_TamperedCookieIgnored(t *testing.T) {
	r, _, _ := setupResolverTest(t)

	c, rec := resolverTestContext(http.MethodGet, "http://app.example.com/", "garbage.token.here")
	identity, isNew := r.Resolve(c)

	// Invalid cookie falls through to minting a fresh identity.
	require.NotNil(t, identity)
	assert.True(t, isNew)
	require.NotNil(t, sessionCookie(t, rec))
}

func TestResolver_CookieForDeletedRecordRemints(t *testing.T) {
	r, identities, nowPtr := setupResolverTest(t)

	c, rec := resolverTestContext(http.MethodGet, "http://app.example.com/", "")
	minted, _ := r.Resolve(c)
	require.NotNil(t, minted)
	ck := sessionCookie(t, rec)

	// Retention removed the record behind the still-valid cookie.
	_, err := identities.DeleteIdleBefore(nowPtr.Add(time.Hour))
	require.NoError(t, err)

	c, _ = resolverTestContext(http.MethodGet, "http://app.example.com/", ck.Value)
	identity, isNew := r.Resolve(c)
	require.NotNil(t, identity)
	assert.True(t, isNew)
	assert.NotEqual(t, minted.ID, identity.ID)
}

func TestResolver_MetadataRefreshThrottled(t *testing.T) {
	r, identities, nowPtr := setupResolverTest(t)

	c, rec := resolverTestContext(http.MethodGet, "http://app.example.com/", "")
	minted, _ := r.Resolve(c)
	require.NotNil(t, minted)
	ck := sessionCookie(t, rec)

	// The first cookie resolve refreshes the attempted-access timestamp.
	*nowPtr = nowPtr.Add(time.Minute)
	c, _ = resolverTestContext(http.MethodGet, "http://app.example.com/", ck.Value)
	_, _ = r.Resolve(c)
	stored, err := identities.Get(minted.ID)
	require.NoError(t, err)
	refreshedAt := stored.LastAttemptedAccessAt
	assert.Equal(t, nowPtr.Unix(), refreshedAt.Unix())

	// Inside the refresh interval with unchanged metadata no write lands.
	*nowPtr = nowPtr.Add(time.Minute)
	c, _ = resolverTestContext(http.MethodGet, "http://app.example.com/", ck.Value)
	_, _ = r.Resolve(c)
	stored, err = identities.Get(minted.ID)
	require.NoError(t, err)
	assert.Equal(t, refreshedAt.Unix(), stored.LastAttemptedAccessAt.Unix())

	// A user-agent change writes through immediately.
	*nowPtr = nowPtr.Add(time.Minute)
	c, _ = resolverTestContext(http.MethodGet, "http://app.example.com/", ck.Value)
	c.Request.Header.Set("User-Agent", "other-agent")
	_, _ = r.Resolve(c)
	stored, err = identities.Get(minted.ID)
	require.NoError(t, err)
	assert.Equal(t, "other-agent", stored.UserAgent)
	assert.Equal(t, nowPtr.Unix(), stored.LastAttemptedAccessAt.Unix())
}

func TestResolver_MarkAccessedThrottled(t *testing.T) {
	r, identities, nowPtr := setupResolverTest(t)

	c, _ := resolverTestContext(http.MethodGet, "http://app.example.com/", "")
	minted, _ := r.Resolve(c)
	require.NotNil(t, minted)

	r.MarkAccessed(minted.ID)
	stored, err := identities.Get(minted.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastAccessedAt)
	first := *stored.LastAccessedAt

	// A second mark inside the interval is dropped.
	*nowPtr = nowPtr.Add(time.Minute)
	r.MarkAccessed(minted.ID)
	stored, err = identities.Get(minted.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Unix(), stored.LastAccessedAt.Unix())

	*nowPtr = nowPtr.Add(refreshInterval)
	r.MarkAccessed(minted.ID)
	stored, err = identities.Get(minted.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.Unix(), stored.LastAccessedAt.Unix())
}

func TestSealUnsealRoundTrip(t *testing.T) {
	now := time.Now()
	token, err := sealIdentity([]byte(testSecret), "some-guid", time.Hour, now)
	require.NoError(t, err)

	id, err := unsealIdentity([]byte(testSecret), token)
	require.NoError(t, err)
	assert.Equal(t, "some-guid", id)

	// Wrong key or expired token never unseals.
	_, err = unsealIdentity([]byte("other-secret"), token)
	assert.Error(t, err)

	expired, err := sealIdentity([]byte(testSecret), "some-guid", -time.Hour, now)
	require.NoError(t, err)
	_, err = unsealIdentity([]byte(testSecret), expired)
	assert.Error(t, err)
}
