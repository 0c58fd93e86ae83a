// Package portal implements the per-session page and chat state machine
// and the host loop that drives it.
package portal

import "github.com/ashureev/umit-portal/internal/domain"

// EventKind names an inbound UI event.
type EventKind string

const (
	EventLogin          EventKind = "login"
	EventSelectPage     EventKind = "select_page"
	EventLogout         EventKind = "logout"
	EventSubmitDocument EventKind = "submit_document"
	EventQuickReply     EventKind = "quick_reply"
	EventChat           EventKind = "chat"
)

// Event is a UI event. Only the fields relevant to Kind are read.
type Event struct {
	Kind     EventKind   `json:"kind" validate:"required,oneof=login select_page logout submit_document quick_reply chat"`
	AppID    string      `json:"app_id,omitempty"`
	Password string      `json:"password,omitempty"`
	Page     domain.Page `json:"page,omitempty"`
	FileName string      `json:"file_name,omitempty"`
	Label    string      `json:"label,omitempty"`
	Text     string      `json:"text,omitempty" validate:"max=4000"`
}

// Login builds a credential submit event.
func Login(appID, password string) Event {
	return Event{Kind: EventLogin, AppID: appID, Password: password}
}

// SelectPage builds a sidebar page selection event.
func SelectPage(page domain.Page) Event {
	return Event{Kind: EventSelectPage, Page: page}
}

// Logout builds a logout click event.
func Logout() Event {
	return Event{Kind: EventLogout}
}

// SubmitDocument builds a document submit event. An empty name means no
// file was selected.
func SubmitDocument(fileName string) Event {
	return Event{Kind: EventSubmitDocument, FileName: fileName}
}

// QuickReply builds a quick-reply click event.
func QuickReply(label string) Event {
	return Event{Kind: EventQuickReply, Label: label}
}

// Chat builds a free-text chat submit event.
func Chat(text string) Event {
	return Event{Kind: EventChat, Text: text}
}

// EffectKind names a side effect produced by a transition.
type EffectKind string

const (
	EffectError          EffectKind = "error"
	EffectSuccess        EffectKind = "success"
	EffectAssistantReply EffectKind = "assistant_reply"
)

// Effect is a side effect returned as data by Machine.Handle.
type Effect struct {
	Kind    EffectKind `json:"kind"`
	Message string     `json:"message"`
}

// IsBanner reports whether the effect is shown to the user as a banner.
func (e Effect) IsBanner() bool {
	return e.Kind == EffectError || e.Kind == EffectSuccess
}

// Banner texts.
const (
	MsgInvalidCredentials = "Invalid Application ID or Password"
	MsgDocumentSubmitted  = "Document submitted!"
)
