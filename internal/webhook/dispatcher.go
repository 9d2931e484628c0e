// Package webhook fans run lifecycle events out to registered HTTP endpoints.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"para/internal/db"
	"para/internal/idgen"
)

const (
	SignatureHeader = "X-Para-Signature"
	EventHeader     = "X-Para-Event"
	EventIDHeader   = "X-Para-Event-Id"

	deliveryTimeout = 5 * time.Second
)

type Dispatcher struct {
	db     *sql.DB
	client *http.Client
	logger *zap.Logger
	wg     sync.WaitGroup
}

func NewDispatcher(database *sql.DB, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		db:     database,
		client: &http.Client{Timeout: deliveryTimeout},
		logger: logger,
	}
}

// Emit delivers event in the background. Failures are logged only.
func (d *Dispatcher) Emit(event string, data map[string]any) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		defer cancel()
		if err := d.Deliver(ctx, event, data); err != nil {
			d.logger.Warn("webhook delivery failed", zap.String("event", event), zap.Error(err))
		}
	}()
}

// Wait blocks until background deliveries started by Emit have finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Deliver posts event to every subscribed hook and returns the first error.
func (d *Dispatcher) Deliver(ctx context.Context, event string, data map[string]any) error {
	hooks, err := db.WebhooksForEvent(ctx, d.db, event)
	if err != nil {
		return fmt.Errorf("list webhooks: %w", err)
	}
	if len(hooks) == 0 {
		return nil
	}
	now := time.Now().UTC()
	id := idgen.EventID(now)
	body, err := json.Marshal(map[string]any{
		"id":    id,
		"event": event,
		"at":    now.Format(time.RFC3339),
		"data":  data,
	})
	if err != nil {
		return err
	}

	var firstErr error
	for _, wh := range hooks {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, wh.URL, bytes.NewReader(body))
		if err != nil {
			firstErr = keepFirst(firstErr, err)
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(EventHeader, event)
		req.Header.Set(EventIDHeader, id)
		if strings.TrimSpace(wh.Secret) != "" {
			req.Header.Set(SignatureHeader, Sign(wh.Secret, body))
		}
		resp, err := d.client.Do(req)
		if err != nil {
			firstErr = keepFirst(firstErr, fmt.Errorf("post %s: %w", wh.URL, err))
			continue
		}
		_ = resp.Body.Close()
		if resp.StatusCode >= 300 {
			firstErr = keepFirst(firstErr, fmt.Errorf("post %s: http %d", wh.URL, resp.StatusCode))
		}
	}
	return firstErr
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func keepFirst(current, next error) error {
	if current != nil {
		return current
	}
	return next
}
