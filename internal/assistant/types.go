// Package assistant implements the scripted UMIT support assistant.
package assistant

// Canned assistant texts.
const (
	Greeting       = "Hi! I'm your UMIT Assistant. What can I help you with?"
	FeeReply       = "Your Semester 4 fees are *PAID*. No dues found."
	TimetableReply = "The timetable for Computer Science & Technology is being updated."
	DocumentReply  = "Your 'Admission Receipt' is currently *Pending Review* by the registrar."
	FallbackReply  = "I've noted your query. An admin will get back to you shortly."
)

// QuickReply is a fixed button that injects a literal utterance into the chat.
type QuickReply struct {
	Label     string `json:"label"`
	Utterance string `json:"utterance"`
}

// QuickReplies returns the shortcut buttons in display order.
func QuickReplies() []QuickReply {
	return []QuickReply{
		{Label: "💳 Fee Status", Utterance: "Check my fee payment status"},
		{Label: "📅 Timetable", Utterance: "Show my class schedule"},
		{Label: "📄 Documents", Utterance: "Check document verification status"},
		{Label: "🙋 Admin Help", Utterance: "Connect me to an admin"},
	}
}

// LookupQuickReply returns the utterance bound to label.
func LookupQuickReply(label string) (string, bool) {
	for _, qr := range QuickReplies() {
		if qr.Label == label {
			return qr.Utterance, true
		}
	}
	return "", false
}
