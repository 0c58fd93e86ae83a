package portal

import (
	"testing"

	"github.com/ashureev/umit-portal/internal/assistant"
	"github.com/ashureev/umit-portal/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loggedIn(t *testing.T, m *Machine) domain.State {
	t.Helper()
	s, effects := m.Handle(domain.NewState(), Login("A1", "p"))
	require.Empty(t, effects)
	return s
}

func onAssistant(t *testing.T, m *Machine) domain.State {
	t.Helper()
	s, _ := m.Handle(loggedIn(t, m), SelectPage(domain.PageAIAssistant))
	return s
}

func requireAlternates(t *testing.T, transcript []domain.ChatMessage) {
	t.Helper()
	for i := 1; i < len(transcript); i++ {
		require.NotEqual(t, transcript[i-1].Role, transcript[i].Role, "entries %d and %d share a role", i-1, i)
	}
}

func TestLoginRejectsEmptyFields(t *testing.T) {
	m := NewMachine()

	for _, ev := range []Event{Login("", "x"), Login("A1", ""), Login("", "")} {
		s, effects := m.Handle(domain.NewState(), ev)
		assert.False(t, s.Authenticated)
		assert.Equal(t, domain.PageLogin, s.VisiblePage())
		assert.Empty(t, s.StudentID)
		require.Len(t, effects, 1)
		assert.Equal(t, Effect{Kind: EffectError, Message: MsgInvalidCredentials}, effects[0])
	}
}

func TestLoginAcceptsAnyNonEmptyPair(t *testing.T) {
	m := NewMachine()

	s, effects := m.Handle(domain.NewState(), Login("A1", "p"))
	assert.Empty(t, effects)
	assert.True(t, s.Authenticated)
	assert.Equal(t, domain.PageDashboard, s.CurrentPage)
	assert.Equal(t, "A1", s.StudentID)
}

func TestUnauthenticatedIgnoresOtherEvents(t *testing.T) {
	m := NewMachine()
	start := domain.NewState()

	for _, ev := range []Event{
		SelectPage(domain.PageAIAssistant),
		Logout(),
		SubmitDocument("receipt.pdf"),
		Chat("fee"),
		QuickReply("💳 Fee Status"),
	} {
		s, effects := m.Handle(start, ev)
		assert.Equal(t, start, s, "event %s", ev.Kind)
		assert.Empty(t, effects)
	}
}

func TestLoginPagePrecedence(t *testing.T) {
	s := domain.State{Authenticated: false, CurrentPage: domain.PageAIAssistant}
	assert.Equal(t, domain.PageLogin, s.VisiblePage())
	assert.Equal(t, domain.PageLogin, Render(s, nil).Page)
}

func TestSelectPage(t *testing.T) {
	m := NewMachine()
	s := loggedIn(t, m)
	require.Nil(t, s.Transcript)

	s, _ = m.Handle(s, SelectPage(domain.PageAIAssistant))
	assert.Equal(t, domain.PageAIAssistant, s.CurrentPage)
	require.Len(t, s.Transcript, 1)
	assert.Equal(t, domain.ChatMessage{Role: domain.RoleAssistant, Content: assistant.Greeting}, s.Transcript[0])

	s, _ = m.Handle(s, SelectPage(domain.PageDashboard))
	assert.Equal(t, domain.PageDashboard, s.CurrentPage)
	assert.Len(t, s.Transcript, 1, "transcript survives navigation")

	s, _ = m.Handle(s, SelectPage(domain.PageAIAssistant))
	assert.Len(t, s.Transcript, 1, "greeting is seeded only once")

	for _, p := range []domain.Page{domain.PageLogin, "Settings", ""} {
		next, effects := m.Handle(s, SelectPage(p))
		assert.Equal(t, s, next)
		assert.Empty(t, effects)
	}
}

func TestLogoutFromAnyPage(t *testing.T) {
	m := NewMachine()
	for _, page := range domain.NavigablePages {
		s, _ := m.Handle(loggedIn(t, m), SelectPage(page))
		s, effects := m.Handle(s, Logout())
		assert.Empty(t, effects)
		assert.False(t, s.Authenticated)
		assert.Equal(t, domain.PageLogin, s.CurrentPage)
	}
}

func TestLogoutKeepsTranscriptByDefault(t *testing.T) {
	m := NewMachine()
	s := onAssistant(t, m)
	s, _ = m.Handle(s, Chat("hello"))
	s, _ = m.Handle(s, Logout())
	require.Len(t, s.Transcript, 3)

	s, _ = m.Handle(s, Login("B2", "q"))
	s, _ = m.Handle(s, SelectPage(domain.PageAIAssistant))
	assert.Len(t, s.Transcript, 3)
	assert.Equal(t, "B2", s.StudentID)
}

func TestLogoutResetsTranscriptWhenConfigured(t *testing.T) {
	m := NewMachine(WithTranscriptResetOnLogout(true))
	s := onAssistant(t, m)
	s, _ = m.Handle(s, Chat("hello"))
	s, _ = m.Handle(s, Logout())
	assert.Nil(t, s.Transcript)

	s, _ = m.Handle(s, Login("A1", "p"))
	s, _ = m.Handle(s, SelectPage(domain.PageAIAssistant))
	assert.Len(t, s.Transcript, 1)
}

func TestSubmitDocument(t *testing.T) {
	m := NewMachine()
	s := loggedIn(t, m)

	next, effects := m.Handle(s, SubmitDocument("receipt.pdf"))
	assert.Equal(t, s, next)
	assert.Equal(t, []Effect{{Kind: EffectSuccess, Message: MsgDocumentSubmitted}}, effects)

	_, effects = m.Handle(s, SubmitDocument(""))
	assert.Empty(t, effects, "no file selected")

	s, _ = m.Handle(s, SelectPage(domain.PageAIAssistant))
	_, effects = m.Handle(s, SubmitDocument("receipt.pdf"))
	assert.Empty(t, effects, "upload lives on the dashboard")
}

func TestChatTurn(t *testing.T) {
	m := NewMachine()
	s := onAssistant(t, m)

	s, effects := m.Handle(s, Chat("When is the timetable ready?"))
	require.Len(t, s.Transcript, 3)
	assert.Equal(t, domain.ChatMessage{Role: domain.RoleUser, Content: "When is the timetable ready?"}, s.Transcript[1])
	assert.Equal(t, domain.ChatMessage{Role: domain.RoleAssistant, Content: assistant.TimetableReply}, s.Transcript[2])
	assert.Equal(t, []Effect{{Kind: EffectAssistantReply, Message: assistant.TimetableReply}}, effects)
	assert.False(t, s.AwaitingReply())
}

func TestChatIgnoredOutsideAssistantPage(t *testing.T) {
	m := NewMachine()
	s := loggedIn(t, m)
	next, effects := m.Handle(s, Chat("fee"))
	assert.Equal(t, s, next)
	assert.Empty(t, effects)

	s = onAssistant(t, m)
	next, effects = m.Handle(s, Chat(""))
	assert.Equal(t, s, next)
	assert.Empty(t, effects)
}

func TestQuickReplyFeeStatus(t *testing.T) {
	m := NewMachine()
	s := onAssistant(t, m)

	s, effects := m.Handle(s, QuickReply("💳 Fee Status"))
	require.Len(t, s.Transcript, 3)
	assert.Equal(t, domain.ChatMessage{Role: domain.RoleUser, Content: "Check my fee payment status"}, s.Transcript[1])
	assert.Equal(t, domain.ChatMessage{Role: domain.RoleAssistant, Content: assistant.FeeReply}, s.Transcript[2])
	assert.Len(t, effects, 1)

	next, effects := m.Handle(s, QuickReply("unknown"))
	assert.Equal(t, s, next)
	assert.Empty(t, effects)
}

func TestQuickRepliesGoThroughResolver(t *testing.T) {
	var seen []string
	m := NewMachine(WithResolver(func(u string) string {
		seen = append(seen, u)
		return "ok"
	}))
	s := onAssistant(t, m)

	for _, qr := range assistant.QuickReplies() {
		s, _ = m.Handle(s, QuickReply(qr.Label))
	}
	require.Len(t, seen, 4)
	assert.Equal(t, "Connect me to an admin", seen[3])
}

func TestTranscriptAlternates(t *testing.T) {
	m := NewMachine()
	s := onAssistant(t, m)

	inputs := []Event{
		Chat("hi"),
		QuickReply("📄 Documents"),
		Chat("fee and document"),
		SelectPage(domain.PageDashboard),
		SelectPage(domain.PageAIAssistant),
		QuickReply("📅 Timetable"),
		Chat("   "),
	}
	for _, ev := range inputs {
		s, _ = m.Handle(s, ev)
		requireAlternates(t, s.Transcript)
	}
	assert.Equal(t, domain.RoleAssistant, s.Transcript[len(s.Transcript)-1].Role)
}

func TestHandleDoesNotMutateInput(t *testing.T) {
	m := NewMachine()
	s := onAssistant(t, m)
	s.Transcript = append(make([]domain.ChatMessage, 0, 10), s.Transcript...)
	before := s.Clone()

	_, _ = m.Handle(s, Chat("fee"))
	assert.Equal(t, before, s)
	assert.Equal(t, domain.ChatMessage{}, s.Transcript[:2][1], "spare capacity must not be written")
}

func TestSettleAnswersPendingMessage(t *testing.T) {
	m := NewMachine()
	s := domain.State{
		Authenticated: true,
		CurrentPage:   domain.PageAIAssistant,
		Transcript: []domain.ChatMessage{
			{Role: domain.RoleAssistant, Content: assistant.Greeting},
			{Role: domain.RoleUser, Content: "document status?"},
		},
	}

	settled, effects := m.Settle(s)
	require.Len(t, settled.Transcript, 3)
	assert.Equal(t, assistant.DocumentReply, settled.Transcript[2].Content)
	assert.Len(t, effects, 1)
	assert.Len(t, s.Transcript, 2)

	again, effects := m.Settle(settled)
	assert.Equal(t, settled, again)
	assert.Empty(t, effects)

	next, _ := m.Handle(s, Chat("fee"))
	requireAlternates(t, next.Transcript)
	assert.Len(t, next.Transcript, 5)
}
