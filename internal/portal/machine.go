package portal

import (
	"github.com/ashureev/umit-portal/internal/assistant"
	"github.com/ashureev/umit-portal/internal/domain"
)

// Machine is the session state machine. The zero value is not usable; use
// NewMachine.
type Machine struct {
	resolve                 func(string) string
	resetTranscriptOnLogout bool
}

// MachineOption configures a Machine.
type MachineOption func(*Machine)

// WithResolver replaces the reply resolver.
func WithResolver(resolve func(string) string) MachineOption {
	return func(m *Machine) {
		if resolve != nil {
			m.resolve = resolve
		}
	}
}

// WithTranscriptResetOnLogout makes logout drop the chat transcript.
func WithTranscriptResetOnLogout(reset bool) MachineOption {
	return func(m *Machine) {
		m.resetTranscriptOnLogout = reset
	}
}

// NewMachine returns a machine using assistant.Resolve.
func NewMachine(opts ...MachineOption) *Machine {
	m := &Machine{resolve: assistant.Resolve}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handle applies ev to s and returns the new state and the effects to
// surface. It never mutates s and performs no I/O.
func (m *Machine) Handle(s domain.State, ev Event) (domain.State, []Effect) {
	next := s.Clone()

	if !next.Authenticated {
		if ev.Kind != EventLogin {
			return next, nil
		}
		return m.login(next, ev)
	}

	switch ev.Kind {
	case EventSelectPage:
		return m.selectPage(next, ev.Page), nil
	case EventLogout:
		return m.logout(next), nil
	case EventSubmitDocument:
		if next.VisiblePage() != domain.PageDashboard || ev.FileName == "" {
			return next, nil
		}
		return next, []Effect{{Kind: EffectSuccess, Message: MsgDocumentSubmitted}}
	case EventQuickReply:
		utterance, ok := assistant.LookupQuickReply(ev.Label)
		if !ok || !m.chatOpen(next) || next.AwaitingReply() {
			return next, nil
		}
		return m.converse(next, utterance)
	case EventChat:
		if ev.Text == "" || !m.chatOpen(next) {
			return next, nil
		}
		return m.converse(next, ev.Text)
	default:
		// Login while authenticated and unknown kinds.
		return next, nil
	}
}

func (m *Machine) login(s domain.State, ev Event) (domain.State, []Effect) {
	if ev.AppID == "" || ev.Password == "" {
		return s, []Effect{{Kind: EffectError, Message: MsgInvalidCredentials}}
	}
	s.Authenticated = true
	s.StudentID = ev.AppID
	s.CurrentPage = domain.PageDashboard
	return s, nil
}

func (m *Machine) selectPage(s domain.State, page domain.Page) domain.State {
	if !page.IsNavigable() {
		return s
	}
	s.CurrentPage = page
	if page == domain.PageAIAssistant && s.Transcript == nil {
		s.Transcript = []domain.ChatMessage{{Role: domain.RoleAssistant, Content: assistant.Greeting}}
	}
	return s
}

func (m *Machine) logout(s domain.State) domain.State {
	s.Authenticated = false
	s.CurrentPage = domain.PageLogin
	if m.resetTranscriptOnLogout {
		s.Transcript = nil
	}
	return s
}

func (m *Machine) chatOpen(s domain.State) bool {
	return s.VisiblePage() == domain.PageAIAssistant && s.Transcript != nil
}

// converse appends the user utterance and, because the last entry is now
// from the user, the resolved assistant reply. A reply still pending from an
// earlier turn is produced first so roles keep alternating.
func (m *Machine) converse(s domain.State, utterance string) (domain.State, []Effect) {
	s, effects := m.reply(s)
	s.Transcript = append(s.Transcript, domain.ChatMessage{Role: domain.RoleUser, Content: utterance})
	s, more := m.reply(s)
	return s, append(effects, more...)
}

func (m *Machine) reply(s domain.State) (domain.State, []Effect) {
	last, ok := s.LastMessage()
	if !ok || last.Role != domain.RoleUser {
		return s, nil
	}
	answer := m.resolve(last.Content)
	s.Transcript = append(s.Transcript, domain.ChatMessage{Role: domain.RoleAssistant, Content: answer})
	return s, []Effect{{Kind: EffectAssistantReply, Message: answer}}
}

// Settle resolves a pending user message left in s, for example by a
// transcript restored from storage. It is a no-op when no reply is pending.
func (m *Machine) Settle(s domain.State) (domain.State, []Effect) {
	return m.reply(s.Clone())
}
