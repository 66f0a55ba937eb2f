package store

import "context"

// CreateChatSession creates a new chat session.
func (s *Store) CreateChatSession(ctx context.Context, create *ChatSession) (*ChatSession, error) {
	return s.driver.CreateChatSession(ctx, create)
}

// ListChatSessions lists sessions matching the given filter, most recently
// updated first.
func (s *Store) ListChatSessions(ctx context.Context, find *FindChatSession) ([]*ChatSession, error) {
	return s.driver.ListChatSessions(ctx, find)
}

// GetChatSession returns the first session matching the given filter, or nil
// when none matches.
func (s *Store) GetChatSession(ctx context.Context, find *FindChatSession) (*ChatSession, error) {
	list, err := s.driver.ListChatSessions(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// UpdateChatSession updates a session's mutable fields and bumps updated_ts.
func (s *Store) UpdateChatSession(ctx context.Context, update *UpdateChatSession) (*ChatSession, error) {
	return s.driver.UpdateChatSession(ctx, update)
}

// DeleteChatSession deletes a session and all its messages (cascade).
func (s *Store) DeleteChatSession(ctx context.Context, id int32) error {
	return s.driver.DeleteChatSession(ctx, id)
}

// CreateChatMessage persists a new message and bumps the owning session's
// updated_ts.
func (s *Store) CreateChatMessage(ctx context.Context, create *CreateChatMessage) (*ChatMessage, error) {
	return s.driver.CreateChatMessage(ctx, create)
}

// ListChatMessages returns messages for a session ordered oldest first,
// ties broken by insertion order.
func (s *Store) ListChatMessages(ctx context.Context, find *FindChatMessage) ([]*ChatMessage, error) {
	return s.driver.ListChatMessages(ctx, find)
}

// CountChatMessages returns the total number of messages in a session.
func (s *Store) CountChatMessages(ctx context.Context, sessionID int32) (int64, error) {
	return s.driver.CountChatMessages(ctx, sessionID)
}
