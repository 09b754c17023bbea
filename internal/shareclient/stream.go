package shareclient

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Kdnmm11/TravPlanner-sub000/internal/domain"
)

// maxEventSize bounds one SSE frame. Snapshots carry a whole trip payload.
const maxEventSize = 8 << 20

// Backoff is the reconnect schedule of an event stream: the delay starts at
// Initial, doubles after each failed attempt up to Max, and resets once an
// event arrives.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
}

// DefaultBackoff is used unless WithBackoff is given.
var DefaultBackoff = Backoff{Initial: 500 * time.Millisecond, Max: 30 * time.Second}

func (b Backoff) next(d time.Duration) time.Duration {
	d *= 2
	if d > b.Max {
		return b.Max
	}
	return d
}

// subscribe opens the stream at path synchronously, so a missing share is
// reported to the caller, then reads it on its own goroutine. The returned
// func stops the stream without waiting for the reader.
func (c *Client) subscribe(ctx context.Context, path, event string, deliver func([]byte) error) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	resp, err := c.openStream(ctx, path)
	if err != nil {
		cancel()
		return nil, err
	}
	go c.follow(ctx, path, event, resp, deliver)
	return cancel, nil
}

func (c *Client) openStream(ctx context.Context, path string) (*http.Response, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}
	return resp, nil
}

// follow delivers events from resp until ctx is done, reconnecting whenever
// the stream ends. Each new connection starts with the full current state, so
// nothing missed while disconnected is lost.
func (c *Client) follow(ctx context.Context, path, event string, resp *http.Response, deliver func([]byte) error) {
	delay := c.backoff.Initial
	for {
		err := readEvents(resp.Body, func(ev sseEvent) {
			switch ev.Name {
			case event:
				delay = c.backoff.Initial
				if err := deliver(ev.Data); err != nil {
					c.log.Warn("decode stream event failed", "path", path, "error", err)
				}
			case "error":
				c.log.Warn("share service reported a stream error", "path", path, "data", string(ev.Data))
			}
		})
		resp.Body.Close()
		if ctx.Err() != nil {
			return
		}
		c.log.Info("event stream ended, reconnecting", "path", path, "error", err, "retry_in", delay)

		resp = c.reconnect(ctx, path, &delay)
		if resp == nil {
			return
		}
	}
}

// reconnect retries openStream with backoff. It returns nil when ctx is done
// or the share no longer exists.
func (c *Client) reconnect(ctx context.Context, path string, delay *time.Duration) *http.Response {
	timer := time.NewTimer(*delay)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
		*delay = c.backoff.next(*delay)

		resp, err := c.openStream(ctx, path)
		switch {
		case err == nil:
			return resp
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, domain.ErrNotFound):
			c.log.Warn("share is gone, stopping event stream", "path", path)
			return nil
		}
		c.log.Warn("reconnect event stream failed", "path", path, "error", err, "retry_in", *delay)
		timer.Reset(*delay)
	}
}

type sseEvent struct {
	ID   string
	Name string
	Data []byte
}

// readEvents parses a text/event-stream body, calling fn per dispatched
// event. It returns io.EOF when the server closes the stream cleanly.
func readEvents(r io.Reader, fn func(sseEvent)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxEventSize)

	var ev sseEvent
	var data bytes.Buffer
	hasData := false
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			if hasData {
				ev.Data = bytes.Clone(data.Bytes())
				if ev.Name == "" {
					ev.Name = "message"
				}
				fn(ev)
			}
			ev, hasData = sseEvent{}, false
			data.Reset()
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			ev.Name = value
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			hasData = true
		case "id":
			ev.ID = value
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read event stream: %w", err)
	}
	return io.EOF
}
