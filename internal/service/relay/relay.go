// Package relay owns the per-connection chat session: it turns inbound
// events into backend searches and emits replies to the same session only.
package relay

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/zhouzirui/askg-chat/backend/internal/logging"
	"github.com/zhouzirui/askg-chat/backend/internal/metrics"
	"github.com/zhouzirui/askg-chat/backend/internal/model/chat"
	"github.com/zhouzirui/askg-chat/backend/internal/model/search"
	chatservice "github.com/zhouzirui/askg-chat/backend/internal/service/chat"
	"github.com/zhouzirui/askg-chat/backend/internal/service/format"
)

const (
	// DefaultLimit is used when a chat message carries no usable maxResults.
	DefaultLimit = 20

	// BusyNotice answers a chat message rejected in serial mode.
	BusyNotice = "I'm still working on your previous query. Please wait for those results before asking again."

	// SavedMessage acknowledges save_chat. Nothing is persisted.
	SavedMessage = "Chat saved successfully"

	promptLogMaxLen = 50
)

// Searcher runs a prompt against the search backend. A nil result means the
// call failed or found nothing.
type Searcher interface {
	Search(ctx context.Context, prompt string, limit int) *search.Result
}

// Emitter delivers one outbound event to a single client connection.
type Emitter interface {
	Emit(event string, payload any) error
}

// Config tunes the relay.
type Config struct {
	DefaultLimit int
	// Serial allows one in-flight chat message per session; extras are
	// answered with BusyNotice instead of being searched.
	Serial bool
}

// Relay handles session events. It is safe for concurrent use.
type Relay struct {
	searcher Searcher
	sessions *chatservice.Service
	metrics  *metrics.Collector
	cfg      Config
	now      func() time.Time

	inflight sync.WaitGroup
}

// Session is the relay's handle on one live connection.
type Session struct {
	ID string

	emitter Emitter
	slot    *semaphore.Weighted
	log     zerolog.Logger
}

// New builds a relay. collector may be nil.
func New(searcher Searcher, sessions *chatservice.Service, collector *metrics.Collector, cfg Config) *Relay {
	if cfg.DefaultLimit < 1 {
		cfg.DefaultLimit = DefaultLimit
	}
	return &Relay{
		searcher: searcher,
		sessions: sessions,
		metrics:  collector,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Open registers a session for a freshly accepted connection.
func (r *Relay) Open(ctx context.Context, emitter Emitter) *Session {
	record := r.sessions.CreateSession(ctx)
	r.metrics.SessionOpened()

	sess := &Session{
		ID:      record.ID,
		emitter: emitter,
		slot:    semaphore.NewWeighted(1),
		log:     log.With().Str("component", "relay").Str("session_id", record.ID).Logger(),
	}
	sess.log.Info().Msg("session opened")
	return sess
}

// Close releases the session. Replies still in flight are dropped when they
// complete. Closing twice is a no-op.
func (r *Relay) Close(ctx context.Context, sess *Session) {
	if !r.sessions.CloseSession(ctx, sess.ID) {
		return
	}
	r.metrics.SessionClosed()
	sess.log.Info().Msg("session closed")
}

// Dispatch routes one inbound event. chat_message runs on its own goroutine
// so the connection keeps reading while the backend is queried; the backend
// call is detached from ctx cancellation. Other events complete inline.
func (r *Relay) Dispatch(ctx context.Context, sess *Session, event string, data []byte) {
	if event != chat.EventChatMessage {
		r.Handle(ctx, sess, event, data)
		return
	}

	r.metrics.Event(event)
	msg := DecodeChatMessage(data, r.cfg.DefaultLimit)
	detached := context.WithoutCancel(ctx)

	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		defer func() {
			if rec := recover(); rec != nil {
				sess.log.Error().Interface("panic", rec).Msg("chat message handler crashed")
			}
		}()
		r.HandleChatMessage(detached, sess, msg)
	}()
}

// Handle processes one inbound event synchronously.
func (r *Relay) Handle(ctx context.Context, sess *Session, event string, data []byte) {
	switch event {
	case chat.EventChatMessage:
		r.metrics.Event(event)
		r.HandleChatMessage(ctx, sess, DecodeChatMessage(data, r.cfg.DefaultLimit))
	case chat.EventNewChat:
		r.metrics.Event(event)
		r.HandleNewChat(sess)
	case chat.EventSaveChat:
		r.metrics.Event(event)
		r.HandleSaveChat(sess, data)
	case chat.EventDisconnect:
		r.metrics.Event(event)
		r.Close(ctx, sess)
	default:
		r.metrics.Event("unknown")
		sess.log.Warn().Str("event", event).Msg("ignoring unknown event")
	}
}

// HandleChatMessage searches for msg and emits chat_response followed, when
// anything was found, by mcp_servers_result.
func (r *Relay) HandleChatMessage(ctx context.Context, sess *Session, msg chat.ChatMessage) {
	if r.cfg.Serial {
		if !sess.slot.TryAcquire(1) {
			sess.log.Info().Msg("chat message rejected, previous query still running")
			r.emit(sess, chat.EventChatResponse, r.newResponse(BusyNotice))
			return
		}
		defer sess.slot.Release(1)
	}

	if msg.MaxResults < 1 {
		msg.MaxResults = r.cfg.DefaultLimit
	}

	sess.log.Info().
		Str("prompt", logging.Truncate(msg.Content, promptLogMaxLen)).
		Int("max_results", msg.MaxResults).
		Msg("chat message received")

	var result *search.Result
	if strings.TrimSpace(msg.Content) != "" {
		result = r.searcher.Search(ctx, msg.Content, msg.MaxResults)
	}

	out := format.Format(msg.Content, result)

	r.emit(sess, chat.EventChatResponse, r.newResponse(out.Content))
	if out.Structured != nil {
		sess.log.Debug().Int("servers", len(out.Structured.Servers)).Msg("sending servers to client")
		r.emit(sess, chat.EventServersResult, out.Structured)
	}
}

// HandleNewChat acknowledges a cleared conversation.
func (r *Relay) HandleNewChat(sess *Session) {
	sess.log.Info().Msg("new chat requested")
	r.emit(sess, chat.EventChatCleared, struct{}{})
}

// HandleSaveChat acknowledges a save request without storing anything.
func (r *Relay) HandleSaveChat(sess *Session, data []byte) {
	sess.log.Info().Int("bytes", len(data)).Msg("chat save requested")
	r.emit(sess, chat.EventChatSaved, chat.SaveAck{Success: true, Message: SavedMessage})
}

// Wait blocks until every dispatched chat message has finished.
func (r *Relay) Wait() {
	r.inflight.Wait()
}

func (r *Relay) emit(sess *Session, event string, payload any) {
	if !r.sessions.Alive(sess.ID) {
		r.metrics.EmitDropped()
		sess.log.Debug().Str("event", event).Msg("session gone, dropping event")
		return
	}
	if err := sess.emitter.Emit(event, payload); err != nil {
		r.metrics.EmitDropped()
		sess.log.Debug().Err(err).Str("event", event).Msg("emit failed")
	}
}

func (r *Relay) newResponse(content string) chat.ChatResponse {
	return chat.ChatResponse{
		ID:        uuid.NewString(),
		Type:      chat.ResponseTypeAI,
		Content:   content,
		Timestamp: r.now().UTC().Format(chat.TimestampLayout),
	}
}
