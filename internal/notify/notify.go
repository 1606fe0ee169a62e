package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/containrrr/shoutrrr"
	"gorm.io/gorm"

	"github.com/gatewarden/gatewarden/internal/logger"
	"github.com/gatewarden/gatewarden/internal/models"
	"github.com/gatewarden/gatewarden/internal/placeholder"
)

// webhookTimeout bounds outbound delivery so a slow endpoint cannot
// stall a request worker.
const webhookTimeout = 10 * time.Second

// Dispatcher fans gateway events out to configured notification targets.
// Delivery is fire-and-forget: failures are logged, never surfaced, and
// never retried.
type Dispatcher struct {
	db     *gorm.DB
	client *http.Client

	mu       sync.Mutex
	lastSent map[string]time.Time // target UUID + trigger -> last dispatch
}

func NewDispatcher(db *gorm.DB) *Dispatcher {
	return &Dispatcher{
		db: db,
		client: &http.Client{
			Timeout: webhookTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		lastSent: make(map[string]time.Time),
	}
}

// TryNotify dispatches the trigger to every enabled, subscribed target
// whose cooldown has lapsed. Placeholders are substituted into the
// message and target URL before delivery.
func (d *Dispatcher) TryNotify(kind models.NotificationTrigger, values placeholder.Values) {
	var targets []models.NotificationTarget
	if err := d.db.Where("enabled = ?", true).Find(&targets).Error; err != nil {
		logger.Log().WithError(err).Warn("failed to load notification targets")
		return
	}

	now := time.Now()
	for _, target := range targets {
		if !target.WantsTrigger(kind) {
			continue
		}
		if !d.passCooldown(target, kind, now) {
			continue
		}

		go func(t models.NotificationTarget) {
			if err := d.deliver(t, kind, values); err != nil {
				logger.WithFields(map[string]interface{}{
					"target":  t.Name,
					"trigger": kind,
				}).WithError(err).Warn("notification delivery failed")
			}
		}(target)
	}
}

func (d *Dispatcher) passCooldown(target models.NotificationTarget, kind models.NotificationTrigger, now time.Time) bool {
	if target.CooldownSeconds <= 0 {
		return true
	}
	key := target.UUID + "|" + string(kind)

	d.mu.Lock()
	defer d.mu.Unlock()
	if last, ok := d.lastSent[key]; ok {
		if now.Sub(last) < time.Duration(target.CooldownSeconds)*time.Second {
			return false
		}
	}
	d.lastSent[key] = now
	return true
}

func (d *Dispatcher) deliver(target models.NotificationTarget, kind models.NotificationTrigger, values placeholder.Values) error {
	url := placeholder.Resolve(target.URL, values)

	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return d.sendWebhook(url, target.Method, kind, values)
	}

	msg := values["message"]
	if msg == "" {
		msg = string(kind)
	}
	if err := shoutrrr.Send(url, msg); err != nil {
		return fmt.Errorf("shoutrrr send: %w", err)
	}
	return nil
}

func (d *Dispatcher) sendWebhook(url, method string, kind models.NotificationTrigger, values placeholder.Values) error {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodPost
	}

	payload := map[string]string{"event": string(kind), "time": time.Now().UTC().Format(time.RFC3339)}
	for k, v := range values {
		payload[k] = v
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	var reader *bytes.Reader
	if method == http.MethodGet {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
