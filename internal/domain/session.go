package domain

import "slices"

// Page identifies which portal screen is selected.
type Page string

const (
	PageLogin       Page = "Login"
	PageDashboard   Page = "Dashboard"
	PageAIAssistant Page = "AI Assistant"
)

// NavigablePages lists the pages offered in the sidebar once logged in.
var NavigablePages = []Page{PageDashboard, PageAIAssistant}

// IsNavigable reports whether p can be chosen from the sidebar.
func (p Page) IsNavigable() bool {
	return slices.Contains(NavigablePages, p)
}

// State is the complete per-session portal state.
//
// Transcript stays nil until the assistant page is first opened.
type State struct {
	Authenticated bool          `json:"authenticated"`
	CurrentPage   Page          `json:"current_page"`
	StudentID     string        `json:"student_id,omitempty"`
	Transcript    []ChatMessage `json:"transcript,omitempty"`
}

// NewState returns the state of a fresh session.
func NewState() State {
	return State{CurrentPage: PageLogin}
}

// VisiblePage returns the page that must be shown. An unauthenticated
// session always sees Login, whatever CurrentPage holds.
func (s State) VisiblePage() Page {
	if !s.Authenticated {
		return PageLogin
	}
	if !s.CurrentPage.IsNavigable() {
		return PageDashboard
	}
	return s.CurrentPage
}

// LastMessage returns the most recent transcript entry.
func (s State) LastMessage() (ChatMessage, bool) {
	if len(s.Transcript) == 0 {
		return ChatMessage{}, false
	}
	return s.Transcript[len(s.Transcript)-1], true
}

// AwaitingReply reports whether the last entry came from the user.
func (s State) AwaitingReply() bool {
	last, ok := s.LastMessage()
	return ok && last.Role == RoleUser
}

// Clone returns a copy that shares no memory with s.
func (s State) Clone() State {
	c := s
	c.Transcript = slices.Clone(s.Transcript)
	return c
}
