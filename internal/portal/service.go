package portal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/umit-portal/internal/assistant"
	"github.com/ashureev/umit-portal/internal/domain"
	"github.com/ashureev/umit-portal/internal/store"
)

// Result is the outcome of one dispatched event.
type Result struct {
	View    View
	Effects []Effect
}

// Replied reports whether the transition produced an assistant message.
func (r Result) Replied() bool {
	for _, e := range r.Effects {
		if e.Kind == EffectAssistantReply {
			return true
		}
	}
	return false
}

// Service runs the host event loop for every session: load the state,
// apply the event, persist, render. Events of one session are serialized;
// different sessions never touch each other's state.
type Service struct {
	repo    store.Repository
	machine *Machine
	log     assistant.ConversationLogger
	locks   sessionLocks
	now     func() time.Time
}

// NewService creates a portal service.
func NewService(repo store.Repository, machine *Machine, convLog assistant.ConversationLogger) *Service {
	if machine == nil {
		machine = NewMachine()
	}
	if convLog == nil {
		convLog = assistant.NopConversationLogger()
	}
	return &Service{
		repo:    repo,
		machine: machine,
		log:     convLog,
		locks:   sessionLocks{entries: make(map[string]*lockEntry)},
		now:     time.Now,
	}
}

// Dispatch applies ev to the session and returns the rendered result.
func (s *Service) Dispatch(ctx context.Context, sessionID string, ev Event) (Result, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	rec, err := s.load(ctx, sessionID)
	if err != nil {
		return Result{}, err
	}

	prev := rec.State
	next, effects := s.machine.Handle(prev, ev)
	rec.State = next
	rec.UpdatedAt = s.now()
	if err := s.repo.UpsertSession(ctx, rec); err != nil {
		return Result{}, fmt.Errorf("save session: %w", err)
	}

	slog.Info("Portal event handled",
		"session_id", sessionID,
		"event", ev.Kind,
		"page", next.VisiblePage(),
		"authenticated", next.Authenticated,
		"effects", len(effects),
	)
	s.logConversation(sessionID, prev, next)

	return Result{View: Render(next, effects), Effects: effects}, nil
}

// View renders the current state of a session without changing it.
func (s *Service) View(ctx context.Context, sessionID string) (View, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	rec, err := s.load(ctx, sessionID)
	if err != nil {
		return View{}, err
	}
	return Render(rec.State, nil), nil
}

// State returns a copy of the session's current state.
func (s *Service) State(ctx context.Context, sessionID string) (domain.State, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	rec, err := s.load(ctx, sessionID)
	if err != nil {
		return domain.State{}, err
	}
	return rec.State, nil
}

// Forget deletes a session entirely.
func (s *Service) Forget(ctx context.Context, sessionID string) error {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	if err := s.repo.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Expire deletes the session if, with its lock held, it has still been idle
// for at least ttl. It reports whether the session was removed.
func (s *Service) Expire(ctx context.Context, sessionID string, ttl time.Duration) (bool, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	rec, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("load session: %w", err)
	}
	if rec == nil || rec.IdleFor(s.now()) < ttl {
		return false, nil
	}
	if err := s.repo.DeleteSession(ctx, sessionID); err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	return true, nil
}

// load fetches the session, creating it on first use. A transcript that was
// saved with an unanswered user message is settled here.
func (s *Service) load(ctx context.Context, sessionID string) (*domain.SessionRecord, error) {
	rec, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if rec == nil {
		rec = domain.NewSessionRecord(sessionID, s.now())
		if err := s.repo.UpsertSession(ctx, rec); err != nil {
			return nil, fmt.Errorf("create session: %w", err)
		}
		slog.Info("Portal session created", "session_id", sessionID)
		return rec, nil
	}

	if rec.State.AwaitingReply() {
		prev := rec.State
		rec.State, _ = s.machine.Settle(rec.State)
		rec.UpdatedAt = s.now()
		if err := s.repo.UpsertSession(ctx, rec); err != nil {
			return nil, fmt.Errorf("save settled session: %w", err)
		}
		s.logConversation(sessionID, prev, rec.State)
	}
	return rec, nil
}

// logConversation writes every transcript entry appended between prev and next.
func (s *Service) logConversation(sessionID string, prev, next domain.State) {
	if len(next.Transcript) <= len(prev.Transcript) {
		return
	}
	for _, msg := range next.Transcript[len(prev.Transcript):] {
		direction := "inbound"
		eventType := "chat_user_message"
		if msg.Role == domain.RoleAssistant {
			direction = "outbound"
			eventType = "chat_assistant_message"
		}
		s.log.Log(assistant.ConversationLogEvent{
			Timestamp:  s.now().UTC().Format(time.RFC3339Nano),
			SessionID:  sessionID,
			StudentID:  next.StudentID,
			Channel:    "portal",
			Direction:  direction,
			EventType:  eventType,
			ContentRaw: msg.Content,
		})
	}
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// sessionLocks hands out one mutex per session ID and frees it when the
// last holder or waiter is done.
type sessionLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

func (l *sessionLocks) lock(key string) func() {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &lockEntry{}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.entries, key)
		}
		l.mu.Unlock()
	}
}
