package domain

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one transcript entry.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Profile holds the student details shown on the dashboard.
type Profile struct {
	Name            string `json:"name"`
	Branch          string `json:"branch"`
	OnboardingStage string `json:"onboarding_stage"`
}

// StudentProfile is the static profile every student sees.
var StudentProfile = Profile{
	Name:            "Pranali Gosavi",
	Branch:          "Computer Science Technology",
	OnboardingStage: "Pending Verification",
}
