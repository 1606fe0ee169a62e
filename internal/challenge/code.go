package challenge

import (
	"crypto/rand"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gatewarden/gatewarden/internal/placeholder"
)

// codeAlphabet avoids visually ambiguous characters (0/O, 1/I/L).
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const codeLength = 6

// randomCode returns a short human-typable code.
func randomCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	var b strings.Builder
	for _, c := range buf {
		b.WriteByte(codeAlphabet[int(c)%len(codeAlphabet)])
	}
	return b.String(), nil
}

// callWebhook delivers a challenge-owned webhook (OTP code, approval
// request). The URL is placeholder-resolved first; a non-2xx response
// or transport error is returned to the caller as a recoverable error.
func callWebhook(ctx *Context, rawURL, method string, values placeholder.Values) error {
	url := placeholder.Resolve(rawURL, ctx.Placeholders(values))

	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx.Request.Context(), method, url, nil)
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}

	resp, err := ctx.Deps.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("deliver webhook: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
