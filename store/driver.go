package store

import "context"

// Driver is the database-specific backend behind Store.
type Driver interface {
	Migrate(ctx context.Context) error
	Close() error

	CreateChatSession(ctx context.Context, create *ChatSession) (*ChatSession, error)
	ListChatSessions(ctx context.Context, find *FindChatSession) ([]*ChatSession, error)
	UpdateChatSession(ctx context.Context, update *UpdateChatSession) (*ChatSession, error)
	DeleteChatSession(ctx context.Context, id int32) error

	CreateChatMessage(ctx context.Context, create *CreateChatMessage) (*ChatMessage, error)
	ListChatMessages(ctx context.Context, find *FindChatMessage) ([]*ChatMessage, error)
	CountChatMessages(ctx context.Context, sessionID int32) (int64, error)
}
