package gateway

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gatewarden/gatewarden/internal/challenge"
	"github.com/gatewarden/gatewarden/internal/conditions"
	"github.com/gatewarden/gatewarden/internal/config"
	"github.com/gatewarden/gatewarden/internal/identity"
	"github.com/gatewarden/gatewarden/internal/logger"
	"github.com/gatewarden/gatewarden/internal/metrics"
	"github.com/gatewarden/gatewarden/internal/models"
	"github.com/gatewarden/gatewarden/internal/placeholder"
	"github.com/gatewarden/gatewarden/internal/store"
)

// Path prefixes owned by the gateway on every proxied host.
const (
	actionAPIPrefix = "/proxyAuth/api/"
	approvePrefix   = "/proxyAuth/approve/"
)

const listenerPortKey = "listenerPort"

// Gateway is the data-plane request handler: it resolves the host to a
// proxy route, runs the challenge pipeline, and either forwards the
// request or renders a challenge/blocked/not-found page.
type Gateway struct {
	cfg       config.Config
	routes    *store.RouteStore
	settings  *store.SettingsStore
	resolver  *identity.Resolver
	engine    *challenge.Engine
	forwarder *forwarder
	admin     http.Handler
}

// New wires up a gateway. admin, when non-nil, serves requests whose
// host matches the reserved admin subdomain without touching the
// pipeline.
func New(cfg config.Config, routes *store.RouteStore, settings *store.SettingsStore, resolver *identity.Resolver, engine *challenge.Engine, admin http.Handler) *Gateway {
	return &Gateway{
		cfg:       cfg,
		routes:    routes,
		settings:  settings,
		resolver:  resolver,
		engine:    engine,
		forwarder: newForwarder(time.Duration(cfg.ForwardTimeoutSecs) * time.Second),
		admin:     admin,
	}
}

// Router builds the gin engine for one listener port. Every request
// funnels through handle; routing happens on the Host header, not the
// path.
func (g *Gateway) Router(port int) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if g.cfg.Environment == "development" {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), func(c *gin.Context) {
		c.Set(listenerPortKey, port)
		c.Next()
	})
	router.NoRoute(g.handle)
	return router
}

// handle implements the decision order of the request pipeline.
func (g *Gateway) handle(c *gin.Context) {
	host := hostWithoutPort(c.Request.Host)
	port := g.requestPort(c)
	subdomain := g.subdomain(host)

	// Admin traffic bypasses the pipeline entirely.
	if subdomain == g.cfg.AdminSubdomain && g.admin != nil {
		g.admin.ServeHTTP(c.Writer, c.Request)
		return
	}

	// Global kill switch.
	if !g.settings.ForwardingEnabled() {
		g.renderNotFound(c)
		return
	}

	route, err := g.routes.FindByHost(subdomain, port)
	if err != nil {
		g.renderNotFound(c)
		return
	}

	// Routes without auth steps forward without ever resolving an
	// identity.
	if len(route.AuthSteps) == 0 {
		metrics.IncForwarded()
		g.forwarder.forward(c, route)
		return
	}

	client, _ := g.resolver.Resolve(c)
	if client == nil {
		g.renderNotFound(c)
		return
	}

	if client.Blocked {
		metrics.IncBlocked()
		g.renderBlocked(c, client)
		return
	}

	ctx := g.challengeContext(c, route, client)

	path := c.Request.URL.Path
	switch {
	case strings.HasPrefix(path, actionAPIPrefix):
		g.handleAction(c, ctx)
		return
	case strings.HasPrefix(path, approvePrefix):
		g.handleApprove(c, ctx)
		return
	}

	outcome := g.engine.Evaluate(ctx)
	if !outcome.Authorized {
		metrics.IncChallenged()
		g.renderChallengePage(c, route, outcome)
		return
	}

	g.resolver.MarkAccessed(client.ID)
	metrics.IncForwarded()
	g.forwarder.forward(c, route)
}

// handleAction dispatches POST /proxyAuth/api/{type}/{action}. Errors
// stay protocol-level: the transport answer is always HTTP 200 JSON.
func (g *Gateway) handleAction(c *gin.Context, ctx *challenge.Context) {
	if c.Request.Method != http.MethodPost {
		c.JSON(http.StatusOK, challenge.Result{Success: false, Error: "actions require POST"})
		return
	}

	rest := strings.TrimPrefix(c.Request.URL.Path, actionAPIPrefix)
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		c.JSON(http.StatusOK, challenge.Result{Success: false, Error: "malformed action path"})
		return
	}
	typeID, actionName := parts[0], parts[1]

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusOK, challenge.Result{Success: false, Error: "unreadable payload"})
		return
	}

	metrics.IncAction(typeID, actionName)
	result, err := g.engine.DispatchAction(ctx, typeID, actionName, body)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"type":   typeID,
			"action": actionName,
		}).WithError(err).Debug("action dispatch rejected")
		c.JSON(http.StatusOK, challenge.Result{Success: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// handleApprove resolves GET /proxyAuth/approve/{token} visited by an
// out-of-band approver.
func (g *Gateway) handleApprove(c *gin.Context, ctx *challenge.Context) {
	token := strings.TrimPrefix(c.Request.URL.Path, approvePrefix)
	if token == "" || strings.Contains(token, "/") {
		g.renderNotFound(c)
		return
	}
	if err := g.engine.Approve(ctx, token); err != nil {
		g.renderNotFound(c)
		return
	}
	g.renderApproved(c)
}

func (g *Gateway) challengeContext(c *gin.Context, route *models.ProxyRoute, client *models.ClientIdentity) *challenge.Context {
	ip := c.ClientIP()
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return &challenge.Context{
		Deps:     g.engine.Deps(),
		Route:    route,
		Identity: client,
		Facts: conditions.RequestFacts{
			Now:     g.engine.Deps().Now().UTC(),
			IP:      ip,
			IsLocal: isLocalIP(ip),
		},
		Request:         c.Request,
		ApprovalBaseURL: scheme + "://" + c.Request.Host,
	}
}

// subdomain extracts the route key from the request host. Hosts outside
// the configured base domain fall back to their first label.
func (g *Gateway) subdomain(host string) string {
	if host == g.cfg.BaseDomain {
		return ""
	}
	if suffix := "." + g.cfg.BaseDomain; strings.HasSuffix(host, suffix) {
		return strings.TrimSuffix(host, suffix)
	}
	if i := strings.Index(host, "."); i > 0 {
		return host[:i]
	}
	return host
}

func (g *Gateway) requestPort(c *gin.Context) int {
	if _, portStr, err := net.SplitHostPort(c.Request.Host); err == nil {
		if p, err := strconv.Atoi(portStr); err == nil {
			return p
		}
	}
	if v, okPort := c.Get(listenerPortKey); okPort {
		if p, okInt := v.(int); okInt {
			return p
		}
	}
	if c.Request.TLS != nil {
		return 443
	}
	return 80
}

func (g *Gateway) renderBlocked(c *gin.Context, client *models.ClientIdentity) {
	message := placeholder.Resolve(client.BlockedMessage, placeholder.Request(client.IP, time.Now()))
	renderBlockedPage(c, g.cfg.BlockedStatus, message)
}

func hostWithoutPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

// localNetworks matches loopback, RFC1918, link-local, and their IPv6
// counterparts.
var localNetworks = []string{
	"127.0.0.0/8",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"169.254.0.0/16",
	"fc00::/7",
	"fe80::/10",
	"::1/128",
}

func isLocalIP(ipStr string) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	for _, cidr := range localNetworks {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}
		if ipNet.Contains(ip) {
			return true
		}
	}
	return false
}
