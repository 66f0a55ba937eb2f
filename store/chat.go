package store

// Sender identifies who authored a chat message.
type Sender string

const (
	SenderUser        Sender = "USER"
	SenderAIAssistant Sender = "AI_ASSISTANT"
)

// ChatSession represents a single conversation thread.
type ChatSession struct {
	ID         int32
	UID        string
	UserID     string
	Title      string
	IsFavorite bool
	CreatedTs  int64
	UpdatedTs  int64

	// MessageCount is computed by list queries, never stored.
	MessageCount int32
}

// ChatMessage is a single message within a session. Messages are immutable
// after creation and live exactly as long as their session.
type ChatMessage struct {
	ID        int32
	SessionID int32
	Sender    Sender
	Content   string
	Context   string // optional free-text context the message was sent with
	CreatedTs int64
}

// FindChatSession filters for ListChatSessions / GetChatSession.
type FindChatSession struct {
	ID         *int32
	UID        *string
	UserID     *string
	IsFavorite *bool
}

// UpdateChatSession carries fields accepted by UpdateChatSession.
type UpdateChatSession struct {
	ID         int32
	Title      *string
	IsFavorite *bool
}

// FindChatMessage filters for ListChatMessages. Limit/Offset slice the
// timestamp-ordered message list into a page.
type FindChatMessage struct {
	SessionID int32
	Limit     *int
	Offset    *int
}

// CreateChatMessage is the payload for CreateChatMessage.
type CreateChatMessage struct {
	SessionID int32
	Sender    Sender
	Content   string
	Context   string
}
