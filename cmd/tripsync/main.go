// Package main is tripsync, a terminal client for shared trips. It joins a
// share link (or shares a local trip file), mirrors the shared trip into a
// JSON file, prints sync, presence and chat events, and reads commands and
// chat messages from stdin.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/Kdnmm11/TravPlanner-sub000/internal/config"
	"github.com/Kdnmm11/TravPlanner-sub000/internal/domain"
	"github.com/Kdnmm11/TravPlanner-sub000/internal/shareclient"
	"github.com/Kdnmm11/TravPlanner-sub000/internal/sharesync"
	"github.com/Kdnmm11/TravPlanner-sub000/internal/tripstore"
)

const help = `commands:
  /name <name>       set your display name
  /password <pw>     answer the share password prompt
  /reload            re-read the trip file and push it
  /sync              push the local trip now
  /ban <client-id>   ban a member (owner only)
  /disable, /enable  turn sharing off or on (owner only)
  /quit              leave the share
anything else is sent as a chat message`

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelWarn
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdin, os.Stdout); err != nil {
		slog.Error("tripsync failed", "error", err)
		os.Exit(1)
	}
}

// event is something the callbacks hand to the command loop.
type event struct {
	kind string // "name", "password", "evicted", "denied"
	msg  string
}

func run(ctx context.Context, cfg config.ClientConfig, in io.Reader, out io.Writer) error {
	keys, err := sharesync.OpenFileKeystore(cfg.KeysFile)
	if err != nil {
		return err
	}
	identity, err := sharesync.LoadIdentity(keys)
	if err != nil {
		return err
	}
	client := shareclient.New(cfg.ServiceURL, identity.ID, shareclient.WithLogger(slog.Default()))
	trips := tripstore.New()
	p := &printer{w: out}

	tripID, shareID, err := resolveShare(ctx, cfg, client, trips, keys, identity, p)
	if err != nil {
		return err
	}

	unwatch := trips.OnLocalChange(func(id string) {
		if id != tripID {
			return
		}
		err := trips.SaveFile(tripID, cfg.TripFile)
		if errors.Is(err, tripstore.ErrTripNotFound) {
			err = os.Remove(cfg.TripFile)
			if errors.Is(err, os.ErrNotExist) {
				err = nil
			}
		}
		if err != nil {
			slog.Warn("mirror trip file failed", "path", cfg.TripFile, "error", err)
		}
	})
	defer unwatch()

	events := make(chan event, 8)
	sess, err := sharesync.Open(ctx, sharesync.SessionConfig{
		Store:     client,
		Trips:     trips,
		Keys:      keys,
		Identity:  identity,
		ShareID:   shareID,
		TripID:    tripID,
		Callbacks: p.callbacks(events),
		Logger:    slog.Default(),
		Debounce:  cfg.Debounce,
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	unsubscribe, err := sess.Chat().Subscribe(ctx, p.messages)
	if err != nil {
		return err
	}
	defer unsubscribe()

	p.println(help)
	lines := readLines(in)
	triedPassword := false
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev := <-events:
			switch ev.kind {
			case "name":
				if cfg.Name != "" {
					reportErr(p, sess.SubmitName(cfg.Name))
					continue
				}
				p.println("choose a display name with /name <name>")
			case "password":
				if cfg.Password != "" && !triedPassword {
					triedPassword = true
					reportErr(p, sess.SubmitPassword(cfg.Password))
					continue
				}
				p.printf("%s: answer with /password <pw>\n", ev.msg)
			case "evicted", "denied":
				return nil
			}

		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := handleLine(ctx, sess, trips, cfg, p, line); quit {
				return nil
			}
		}
	}
}

// resolveShare joins cfg.Link, or shares the trip in cfg.TripFile when no link
// is configured, and returns the trip and share ids.
func resolveShare(ctx context.Context, cfg config.ClientConfig, client *shareclient.Client, trips *tripstore.Store,
	keys sharesync.Keystore, identity sharesync.ClientIdentity, p *printer) (tripID, shareID string, err error) {
	if cfg.Link == "" {
		tripID, err = trips.LoadFile(cfg.TripFile)
		if err != nil {
			return "", "", fmt.Errorf("no TRIPSYNC_LINK given and no trip to share: %w", err)
		}
		shareID, link, err := sharesync.CreateShare(ctx, client, trips, keys, identity, sharesync.CreateShareRequest{
			TripID:   tripID,
			Password: cfg.Password,
			BaseURL:  cfg.LinkBase,
		})
		if err != nil {
			return "", "", err
		}
		p.printf("shared %s: %s\n", tripID, link)
		return tripID, shareID, nil
	}

	tripID, shareID, ok := sharesync.ParseShareLink(cfg.Link)
	if !ok {
		return "", "", fmt.Errorf("%q is not a share link", cfg.Link)
	}
	// A previous mirror is a starting point; the share overwrites it.
	if _, err := trips.LoadFile(cfg.TripFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("ignoring unreadable trip file", "path", cfg.TripFile, "error", err)
	}
	return tripID, shareID, nil
}

func handleLine(ctx context.Context, sess *sharesync.Session, trips *tripstore.Store, cfg config.ClientConfig, p *printer, line string) (quit bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit":
		return true
	case "/help":
		p.println(help)
	case "/name":
		reportErr(p, sess.SubmitName(arg))
	case "/password":
		reportErr(p, sess.SubmitPassword(arg))
	case "/sync":
		reportErr(p, sess.SyncNow(ctx))
	case "/reload":
		if _, err := trips.LoadFile(cfg.TripFile); err != nil {
			reportErr(p, err)
			return false
		}
		reportErr(p, sess.Log(ctx, "updated the trip"))
	case "/ban":
		reportErr(p, sess.Ban(ctx, arg))
	case "/disable":
		reportErr(p, sess.SetEnabled(ctx, false))
	case "/enable":
		reportErr(p, sess.SetEnabled(ctx, true))
	default:
		st := sess.State()
		if st.Kind != sharesync.GateGranted {
			p.printf("not in the share yet (%s)\n", st.Kind)
			return false
		}
		if _, _, err := sess.Chat().Send(ctx, st.Name, line); err != nil {
			reportErr(p, err)
		}
	}
	return false
}

func readLines(in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()
	return lines
}

func reportErr(p *printer, err error) {
	if err != nil {
		p.printf("error: %v\n", err)
	}
}

// printer serializes output from the callbacks and the command loop.
type printer struct {
	mu      sync.Mutex
	w       io.Writer
	lastSeq int64
}

func (p *printer) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, format, args...)
}

func (p *printer) println(s string) { p.printf("%s\n", s) }

// messages prints the messages not printed yet.
func (p *printer) messages(msgs []domain.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range msgs {
		if m.Seq <= p.lastSeq {
			continue
		}
		p.lastSeq = m.Seq
		fmt.Fprintf(p.w, "[%s] %s: %s\n", m.CreatedAt.Local().Format("15:04"), m.User, m.Text)
	}
}

// callbacks prints every report and forwards the ones that need an answer.
// Callbacks must not block, so prompts are handed over without waiting.
func (p *printer) callbacks(events chan<- event) sharesync.Callbacks {
	send := func(ev event) {
		select {
		case events <- ev:
		default:
		}
	}
	return sharesync.Callbacks{
		OnStatus: func(enabled bool) {
			if enabled {
				p.println("sharing is on")
				return
			}
			p.println("sharing is off")
		},
		OnSyncDirection: func(dir sharesync.Direction, at time.Time) {
			p.printf("%s %s\n", at.Local().Format("15:04:05"), dir)
		},
		OnSyncError: func(msg string) { p.printf("sync error: %s (use /sync to retry)\n", msg) },
		OnAuthRequired: func(required bool, msg string) {
			if required {
				send(event{kind: "password", msg: msg})
				return
			}
			p.println("password accepted")
		},
		OnNameRequired: func() { send(event{kind: "name"}) },
		OnMembersChanged: func(members []domain.Member) {
			names := make([]string, 0, len(members))
			for _, m := range members {
				names = append(names, fmt.Sprintf("%s (%s, %s)", m.Name, m.Role, m.ID))
			}
			p.printf("viewing: %s\n", strings.Join(names, ", "))
		},
		OnAccessDenied: func() {
			p.println("you have been banned from this share")
			send(event{kind: "denied"})
		},
		OnShareDisabled: func(ownerID string) {
			p.printf("sharing was turned off by %s; the local copy was removed\n", ownerID)
			send(event{kind: "evicted"})
		},
	}
}
