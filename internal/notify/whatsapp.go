package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kelurahan-digital/sisurat/internal/model"
)

// ErrClientClosed dikembalikan jika klien dipakai setelah Close.
var ErrClientClosed = errors.New("whatsapp client closed")

// RetryAfterError dikembalikan jika gateway membatasi laju pengiriman.
type RetryAfterError struct {
	After time.Duration
}

func (e *RetryAfterError) Error() string {
	return fmt.Sprintf("whatsapp gateway rate limited, retry after %s", e.After)
}

// WhatsAppClient mengirim pesan melalui gateway WhatsApp HTTP. Sesi ke
// gateway dibuka dengan Connect dan dibuka ulang otomatis setelah gagal.
type WhatsAppClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger

	mu        sync.Mutex
	connected bool
	closed    bool
}

type sendRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// NewWhatsAppClient membuat klien gateway pada alamat baseURL.
func NewWhatsAppClient(baseURL, token string, logger *zap.Logger) *WhatsAppClient {
	base := strings.TrimRight(baseURL, "/")
	if base != "" && !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WhatsAppClient{
		baseURL: base,
		token:   token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Connect memeriksa bahwa sesi gateway aktif.
func (c *WhatsAppClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}
	return c.connectLocked(ctx)
}

func (c *WhatsAppClient) connectLocked(ctx context.Context) error {
	if c.baseURL == "" {
		return fmt.Errorf("whatsapp gateway not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/status", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.connected = false
		return fmt.Errorf("connect gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.connected = false
		return fmt.Errorf("gateway status: %d", resp.StatusCode)
	}

	c.connected = true
	return nil
}

// Close menutup klien. Pemanggilan Send berikutnya gagal dengan ErrClientClosed.
func (c *WhatsAppClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	c.connected = false
	c.httpClient.CloseIdleConnections()
	return nil
}

// Send mengirim notifikasi WhatsApp ke n.Recipient.
func (c *WhatsAppClient) Send(ctx context.Context, n model.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}
	if !c.connected {
		c.logger.Info("reconnecting whatsapp gateway")
		if err := c.connectLocked(ctx); err != nil {
			return err
		}
	}

	payload, err := json.Marshal(sendRequest{Phone: NormalizePhone(n.Recipient), Message: n.Body})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/send", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.connected = false
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := time.Duration(0)
		if v := resp.Header.Get("Retry-After"); v != "" {
			if seconds, parseErr := strconv.Atoi(v); parseErr == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return &RetryAfterError{After: retryAfter}
	case resp.StatusCode == http.StatusUnauthorized:
		c.connected = false
		return fmt.Errorf("gateway rejected token")
	case resp.StatusCode >= 300:
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return nil
}

func (c *WhatsAppClient) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
