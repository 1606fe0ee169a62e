package identity

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gatewarden/gatewarden/internal/logger"
	"github.com/gatewarden/gatewarden/internal/models"
	"github.com/gatewarden/gatewarden/internal/store"
)

// refreshInterval throttles per-identity metadata writes and sliding
// cookie re-issue so busy clients do not amplify into a write per
// request.
const refreshInterval = 5 * time.Minute

// noisePaths never qualify for new-identity creation.
var noisePaths = map[string]bool{
	"/favicon.ico": true,
	"/robots.txt":  true,
}

var noisePrefixes = []string{"/.well-known/", "/applet/"}

// Resolver maps inbound requests to durable anonymous client records
// via the session cookie, minting new identities for eligible requests.
type Resolver struct {
	identities *store.IdentityStore

	secret       []byte
	cookieTTL    time.Duration
	cookieDomain string
	secure       bool
	now          func() time.Time

	mu      sync.Mutex
	markers map[string]time.Time
}

// NewResolver builds a resolver. cookieDomain is the parent domain the
// session cookie is scoped to; secure toggles the Secure cookie flag.
func NewResolver(identities *store.IdentityStore, secret string, cookieTTL time.Duration, cookieDomain string, secure bool) *Resolver {
	return &Resolver{
		identities:   identities,
		secret:       []byte(secret),
		cookieTTL:    cookieTTL,
		cookieDomain: cookieDomain,
		secure:       secure,
		now:          time.Now,
		markers:      make(map[string]time.Time),
	}
}

// Resolve returns the client identity for the request, or nil when the
// request carries no valid cookie and is not eligible to mint one.
func (r *Resolver) Resolve(c *gin.Context) (*models.ClientIdentity, bool) {
	now := r.now()

	if raw, err := c.Cookie(CookieName); err == nil && raw != "" {
		if id, err := unsealIdentity(r.secret, raw); err == nil {
			if identity, err := r.identities.Get(id); err == nil {
				r.refreshMetadata(c, identity, now)
				r.slideCookie(c, identity.ID, now)
				return identity, false
			}
			// Cookie signed by us but the record is gone (retention);
			// fall through to the minting path.
		}
	}

	if !r.eligibleForNewIdentity(c) {
		return nil, false
	}

	identity := &models.ClientIdentity{
		ID:                    uuid.New().String(),
		IP:                    c.ClientIP(),
		UserAgent:             c.Request.UserAgent(),
		LastAttemptedAccessAt: now,
	}
	if err := r.identities.Create(identity); err != nil {
		logger.Log().WithError(err).Warn("failed to create client identity")
		return nil, false
	}
	r.setCookie(c, identity.ID, now)
	return identity, true
}

// MarkAccessed records a successful forward for the identity, throttled
// to once per refresh interval.
func (r *Resolver) MarkAccessed(id string) {
	now := r.now()
	if !r.passMarker("accessed|"+id, now) {
		return
	}
	if err := r.identities.TouchAccessed(id, now); err != nil {
		logger.Log().WithError(err).Warn("failed to update last accessed timestamp")
	}
}

// refreshMetadata updates IP/user-agent immediately on change and the
// attempted-access timestamp at most once per refresh interval.
func (r *Resolver) refreshMetadata(c *gin.Context, identity *models.ClientIdentity, now time.Time) {
	ip := c.ClientIP()
	ua := c.Request.UserAgent()

	changed := identity.IP != ip || identity.UserAgent != ua
	if !changed && !r.passMarker("attempted|"+identity.ID, now) {
		return
	}

	if err := r.identities.TouchAttempted(identity.ID, ip, ua, now); err != nil {
		logger.Log().WithError(err).Warn("failed to refresh client identity")
		return
	}
	identity.IP = ip
	identity.UserAgent = ua
	identity.LastAttemptedAccessAt = now
}

// slideCookie re-issues the session cookie to extend its lifetime, at
// most once per refresh interval per identity.
func (r *Resolver) slideCookie(c *gin.Context, id string, now time.Time) {
	if !r.passMarker("cookie|"+id, now) {
		return
	}
	r.setCookie(c, id, now)
}

func (r *Resolver) setCookie(c *gin.Context, id string, now time.Time) {
	token, err := sealIdentity(r.secret, id, r.cookieTTL, now)
	if err != nil {
		logger.Log().WithError(err).Error("failed to seal session cookie")
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, token, int(r.cookieTTL.Seconds()), "/", r.cookieDomain, r.secure, true)
}

// eligibleForNewIdentity gates identity creation: GET only, and never
// for noise paths browsers fetch on their own.
func (r *Resolver) eligibleForNewIdentity(c *gin.Context) bool {
	if c.Request.Method != http.MethodGet {
		return false
	}
	path := c.Request.URL.Path
	if noisePaths[path] {
		return false
	}
	for _, prefix := range noisePrefixes {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}
	return true
}

// passMarker is the short-lived in-process throttle marker. Duplicated
// per worker is acceptable; it only bounds write amplification.
func (r *Resolver) passMarker(key string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if last, ok := r.markers[key]; ok && now.Sub(last) < refreshInterval {
		return false
	}
	r.markers[key] = now
	return true
}
