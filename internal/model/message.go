package model

// Role represents the author of a message.
type Role string

const (
	RoleUser   Role = "user"
	RoleBot    Role = "bot"
	RoleSystem Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleBot, RoleSystem:
		return true
	}
	return false
}

// Message is a single entry of a thread's history. Messages are append-only.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// UserMessage returns a message authored by the user.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Text: text}
}

// BotMessage returns a message authored by the answering service.
func BotMessage(text string) Message {
	return Message{Role: RoleBot, Text: text}
}

// SystemMessage returns an informational message.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Text: text}
}
