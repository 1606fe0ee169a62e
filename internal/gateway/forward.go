package gateway

import (
	"context"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gatewarden/gatewarden/internal/identity"
	"github.com/gatewarden/gatewarden/internal/logger"
	"github.com/gatewarden/gatewarden/internal/models"
)

// forwarder proxies authorized requests to their route destination with
// a bounded activity timeout. The gateway session cookie is stripped so
// backends never observe gateway session state.
type forwarder struct {
	timeout   time.Duration
	transport http.RoundTripper
}

func newForwarder(timeout time.Duration) *forwarder {
	return &forwarder{
		timeout:   timeout,
		transport: http.DefaultTransport,
	}
}

func (f *forwarder) forward(c *gin.Context, route *models.ProxyRoute) {
	target, err := url.Parse(route.Destination)
	if err != nil || target.Scheme == "" || target.Host == "" {
		logger.WithFields(map[string]interface{}{
			"route":       route.Subdomain,
			"destination": route.Destination,
		}).Error("invalid route destination")
		c.String(http.StatusBadGateway, "bad gateway")
		return
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.Transport = f.transport
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.WithFields(map[string]interface{}{
			"route":       route.Subdomain,
			"destination": route.Destination,
		}).WithError(err).Warn("forwarding failed")
		w.WriteHeader(http.StatusBadGateway)
	}

	director := proxy.Director
	proxy.Director = func(req *http.Request) {
		director(req)
		stripSessionCookie(req)
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), f.timeout)
	defer cancel()
	proxy.ServeHTTP(c.Writer, c.Request.WithContext(ctx))
}

// stripSessionCookie rebuilds the Cookie header without the gateway's
// own session cookie.
func stripSessionCookie(req *http.Request) {
	cookies := req.Cookies()
	req.Header.Del("Cookie")
	for _, cookie := range cookies {
		if cookie.Name == identity.CookieName {
			continue
		}
		req.AddCookie(cookie)
	}
}
