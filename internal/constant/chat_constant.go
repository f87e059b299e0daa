package constant

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"
	ChatMessageRoleSystem    = "system"

	// Default title for sessions created without a first message.
	ChatSessionDefaultTitle = "New Chat"

	// Max characters taken from the first user message when deriving a title.
	ChatSessionTitleMaxLen = 50

	// Watermill topic for committed turns (drives async title derivation).
	TurnCommittedTopic = "CHAT_TURN_COMMITTED"
)
