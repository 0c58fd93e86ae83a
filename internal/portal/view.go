package portal

import (
	"fmt"

	"github.com/ashureev/umit-portal/internal/assistant"
	"github.com/ashureev/umit-portal/internal/domain"
)

// Banner is a transient success or error message.
type Banner struct {
	Level   EffectKind `json:"level"`
	Message string     `json:"message"`
}

// View is everything the UI needs to draw one frame.
type View struct {
	Page         domain.Page            `json:"page"`
	Navigation   []domain.Page          `json:"navigation,omitempty"`
	Header       string                 `json:"header"`
	Profile      *domain.Profile        `json:"profile,omitempty"`
	Banners      []Banner               `json:"banners,omitempty"`
	Transcript   []domain.ChatMessage   `json:"transcript,omitempty"`
	QuickReplies []assistant.QuickReply `json:"quick_replies,omitempty"`
}

// Render builds the view for s. Banner effects from the transition that
// produced s are attached; other effects are ignored.
func Render(s domain.State, effects []Effect) View {
	v := View{Page: s.VisiblePage()}

	for _, e := range effects {
		if e.IsBanner() {
			v.Banners = append(v.Banners, Banner{Level: e.Kind, Message: e.Message})
		}
	}

	switch v.Page {
	case domain.PageLogin:
		v.Header = "UMIT Student Login"
		return v
	case domain.PageDashboard:
		studentID := s.StudentID
		if studentID == "" {
			studentID = "User"
		}
		v.Header = fmt.Sprintf("Student Profile: %s", studentID)
		profile := domain.StudentProfile
		v.Profile = &profile
	case domain.PageAIAssistant:
		v.Header = "💬 UMIT Support"
		v.Transcript = s.Clone().Transcript
		if last, ok := s.LastMessage(); ok && last.Role == domain.RoleAssistant {
			v.QuickReplies = assistant.QuickReplies()
		}
	}

	v.Navigation = append([]domain.Page(nil), domain.NavigablePages...)
	return v
}
