package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Kdnmm11/TravPlanner-sub000/internal/metrics"
	"github.com/Kdnmm11/TravPlanner-sub000/internal/notify"
	"github.com/Kdnmm11/TravPlanner-sub000/internal/shareapi"
)

// keepAliveInterval is how often an idle stream sends a comment line so
// proxies do not close it.
const keepAliveInterval = 25 * time.Second

// ShareEvents handles GET /shares/{shareID}/events.
// It streams the full share snapshot once on connect and again after every
// change signal, as Server-Sent Events.
func (s *Server) ShareEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := shareIDParam(w, r)
	if !ok {
		return
	}
	s.stream(w, r, "share", notify.ShareTopic(id.String()), shareapi.EventSnapshot, func(ctx context.Context) (any, error) {
		return s.shares.Snapshot(ctx, id)
	})
}

// MessageEvents handles GET /shares/{shareID}/messages/events.
// It streams the full ordered message list on connect and after every send.
func (s *Server) MessageEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := shareIDParam(w, r)
	if !ok {
		return
	}
	s.stream(w, r, "messages", notify.MessagesTopic(id.String()), shareapi.EventMessages, func(ctx context.Context) (any, error) {
		msgs, err := s.chat.List(ctx, id)
		if err != nil {
			return nil, err
		}
		return shareapi.MessageList{Data: msgs}, nil
	})
}

// stream subscribes before the first load so no signal between the load and
// the subscription is lost, then writes one event per signal until the client
// disconnects.
func (s *Server) stream(w http.ResponseWriter, r *http.Request, kind, topic, event string, load func(context.Context) (any, error)) {
	ctx := r.Context()
	signals, cancel := s.broker.Subscribe(ctx, topic)
	defer cancel()

	first, err := load(ctx)
	if err != nil {
		s.writeServiceError(w, r, err, "share not found")
		return
	}

	rc := http.NewResponseController(w)
	// Streams outlive the server's write timeout.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		s.log.WarnContext(ctx, "clear write deadline failed", "error", err)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	gauge := metrics.Subscribers.WithLabelValues(kind)
	gauge.Inc()
	defer gauge.Dec()

	if err := writeEvent(w, rc, event, first); err != nil {
		return
	}

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		case _, open := <-signals:
			if !open {
				return
			}
			v, err := load(ctx)
			if err != nil {
				if ctx.Err() == nil {
					s.log.WarnContext(ctx, "reload for stream failed", "topic", topic, "error", err)
					writeEvent(w, rc, "error", shareapi.ErrorDetail{Code: shareapi.CodeInternal, Message: "reload failed"}) //nolint:errcheck
				}
				continue
			}
			if err := writeEvent(w, rc, event, v); err != nil {
				return
			}
		}
	}
}

// writeEvent writes one SSE frame with a JSON data line and flushes it.
func writeEvent(w http.ResponseWriter, rc *http.ResponseController, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event, err)
	}
	if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", uuid.NewString(), event, data); err != nil {
		return err
	}
	return rc.Flush()
}
