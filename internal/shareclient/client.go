// Package shareclient is the HTTP client of the share service. Client
// implements sharesync.DocumentStore: requests carry the caller's client id
// in the X-Client-ID header, and subscriptions read the service's
// Server-Sent Event streams, reconnecting when a stream drops.
package shareclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Kdnmm11/TravPlanner-sub000/internal/domain"
	"github.com/Kdnmm11/TravPlanner-sub000/internal/shareapi"
	"github.com/Kdnmm11/TravPlanner-sub000/internal/sharesync"
)

// DefaultTimeout bounds every non-streaming request.
const DefaultTimeout = 10 * time.Second

// Client talks to one share service as one client.
type Client struct {
	base     string
	clientID string
	hc       *http.Client // request/response calls
	stream   *http.Client // event streams; no overall timeout
	log      *slog.Logger
	backoff  Backoff
}

var _ sharesync.DocumentStore = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for both calls and streams.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.hc = hc
		c.stream = hc
	}
}

// WithLogger sets the logger for stream reconnects.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithBackoff sets the reconnect delays of event streams.
func WithBackoff(b Backoff) Option {
	return func(c *Client) { c.backoff = b }
}

// New returns a client for the service at base, identifying as clientID.
func New(base, clientID string, opts ...Option) *Client {
	transport := otelhttp.NewTransport(http.DefaultTransport)
	c := &Client{
		base:     strings.TrimRight(base, "/"),
		clientID: clientID,
		hc:       &http.Client{Timeout: DefaultTimeout, Transport: transport},
		stream:   &http.Client{Transport: transport},
		log:      slog.Default(),
		backoff:  DefaultBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Create stores a new share owned by this client.
func (c *Client) Create(ctx context.Context, in domain.NewShare) (string, error) {
	body := shareapi.CreateShareRequest{Payload: &in.Payload, PasswordHash: in.PasswordHash, OwnerName: in.OwnerName}
	var out shareapi.CreateShareResponse
	if err := c.do(ctx, http.MethodPost, "/shares", body, &out); err != nil {
		return "", fmt.Errorf("shareclient.Client.Create: %w", err)
	}
	return out.ShareID, nil
}

// Snapshot fetches the current snapshot of a share once.
func (c *Client) Snapshot(ctx context.Context, shareID string) (domain.Snapshot, error) {
	var out domain.Snapshot
	if err := c.do(ctx, http.MethodGet, sharePath(shareID), nil, &out); err != nil {
		return domain.Snapshot{}, fmt.Errorf("shareclient.Client.Snapshot: %w", err)
	}
	return out, nil
}

// Update overwrites the share's payload.
func (c *Client) Update(ctx context.Context, shareID string, payload domain.Payload) error {
	if err := c.do(ctx, http.MethodPut, sharePath(shareID, "payload"), payload, nil); err != nil {
		return fmt.Errorf("shareclient.Client.Update: %w", err)
	}
	return nil
}

// SetEnabled turns sharing on or off.
func (c *Client) SetEnabled(ctx context.Context, shareID string, enabled bool) error {
	if err := c.do(ctx, http.MethodPut, sharePath(shareID, "enabled"), shareapi.SetEnabledRequest{Enabled: &enabled}, nil); err != nil {
		return fmt.Errorf("shareclient.Client.SetEnabled: %w", err)
	}
	return nil
}

// BanMember bans memberID from the share.
func (c *Client) BanMember(ctx context.Context, shareID, memberID string) error {
	if err := c.do(ctx, http.MethodPost, sharePath(shareID, "bans"), shareapi.BanRequest{MemberID: memberID}, nil); err != nil {
		return fmt.Errorf("shareclient.Client.BanMember: %w", err)
	}
	return nil
}

// Join registers or refreshes this client's presence entry.
func (c *Client) Join(ctx context.Context, shareID, name string) (domain.Member, error) {
	var m domain.Member
	if err := c.do(ctx, http.MethodPut, sharePath(shareID, "members", "me"), shareapi.JoinRequest{Name: name}, &m); err != nil {
		return domain.Member{}, fmt.Errorf("shareclient.Client.Join: %w", err)
	}
	return m, nil
}

// Leave removes this client's presence entry.
func (c *Client) Leave(ctx context.Context, shareID string) error {
	if err := c.do(ctx, http.MethodDelete, sharePath(shareID, "members", "me"), nil, nil); err != nil {
		return fmt.Errorf("shareclient.Client.Leave: %w", err)
	}
	return nil
}

// SendMessage posts a chat message.
func (c *Client) SendMessage(ctx context.Context, shareID, user, text string) (domain.Message, error) {
	var m domain.Message
	if err := c.do(ctx, http.MethodPost, sharePath(shareID, "messages"), shareapi.SendMessageRequest{User: user, Text: text}, &m); err != nil {
		return domain.Message{}, fmt.Errorf("shareclient.Client.SendMessage: %w", err)
	}
	return m, nil
}

// RecordLog appends an activity entry.
func (c *Client) RecordLog(ctx context.Context, shareID string, entry domain.LogEntry) error {
	body := shareapi.RecordLogRequest{ID: entry.ID, User: entry.User, Action: entry.Action, ClientTS: entry.ClientTS}
	if err := c.do(ctx, http.MethodPost, sharePath(shareID, "logs"), body, nil); err != nil {
		return fmt.Errorf("shareclient.Client.RecordLog: %w", err)
	}
	return nil
}

// Subscribe streams share snapshots.
func (c *Client) Subscribe(ctx context.Context, shareID string, onChange func(domain.Snapshot)) (func(), error) {
	cancel, err := c.subscribe(ctx, sharePath(shareID, "events"), shareapi.EventSnapshot, func(data []byte) error {
		var snap domain.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return err
		}
		onChange(snap)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("shareclient.Client.Subscribe: %w", err)
	}
	return cancel, nil
}

// SubscribeMessages streams the full message list.
func (c *Client) SubscribeMessages(ctx context.Context, shareID string, onChange func([]domain.Message)) (func(), error) {
	cancel, err := c.subscribe(ctx, sharePath(shareID, "messages", "events"), shareapi.EventMessages, func(data []byte) error {
		var list shareapi.MessageList
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		if list.Data == nil {
			list.Data = []domain.Message{}
		}
		onChange(list.Data)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("shareclient.Client.SubscribeMessages: %w", err)
	}
	return cancel, nil
}

func sharePath(shareID string, rest ...string) string {
	parts := append([]string{"shares", url.PathEscape(shareID)}, rest...)
	return "/" + strings.Join(parts, "/")
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		r = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(shareapi.ClientIDHeader, c.clientID)
	return req, nil
}

// do sends one JSON request and decodes a 2xx body into out, if non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// APIError is a non-2xx response. It unwraps to the domain sentinel that
// matches its code, so callers can use errors.Is(err, domain.ErrBanned).
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("share service: status %d", e.Status)
	}
	return fmt.Sprintf("share service: %s", e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Code {
	case shareapi.CodeNotFound:
		return domain.ErrNotFound
	case shareapi.CodeValidation, shareapi.CodeTooLarge, shareapi.CodeMissingClientID:
		return domain.ErrValidation
	case shareapi.CodeForbidden:
		return domain.ErrForbidden
	case shareapi.CodeBanned:
		return domain.ErrBanned
	case shareapi.CodeShareDisabled:
		return domain.ErrShareDisabled
	}
	if e.Status == http.StatusNotFound {
		return domain.ErrNotFound
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var body shareapi.ErrorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &body); err == nil {
		apiErr.Code = body.Error.Code
		apiErr.Message = body.Error.Message
	}
	return apiErr
}

// IsRetryable reports whether err is worth retrying later: transport
// failures and 5xx responses, but not rejections.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500
	}
	return err != nil && !errors.Is(err, context.Canceled)
}
