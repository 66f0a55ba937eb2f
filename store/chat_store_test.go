package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/lithammer/shortuuid/v4"
	"github.com/stretchr/testify/require"

	"github.com/ragchat/ragchat/store"
	"github.com/ragchat/ragchat/store/db/sqlite"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	driver, err := sqlite.NewDB(filepath.Join(t.TempDir(), "ragchat_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = driver.Close() })

	st := store.New(driver)
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func createSession(t *testing.T, st *store.Store, userID, title string) *store.ChatSession {
	t.Helper()
	sess, err := st.CreateChatSession(context.Background(), &store.ChatSession{
		UID:    shortuuid.New(),
		UserID: userID,
		Title:  title,
	})
	require.NoError(t, err)
	return sess
}

func TestCreateAndGetChatSession(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	sess := createSession(t, st, "u1", "First chat")
	require.NotZero(t, sess.ID)
	require.NotEmpty(t, sess.UID)
	require.False(t, sess.IsFavorite)
	require.NotZero(t, sess.CreatedTs)

	got, err := st.GetChatSession(ctx, &store.FindChatSession{ID: &sess.ID})
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "First chat", got.Title)
	require.Equal(t, "u1", got.UserID)
	require.Zero(t, got.MessageCount)
}

func TestGetChatSessionAbsentReturnsNil(t *testing.T) {
	st := newTestStore(t)
	id := int32(999)
	got, err := st.GetChatSession(context.Background(), &store.FindChatSession{ID: &id})
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestListChatSessionsByUserAndFavorite(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	a := createSession(t, st, "u1", "A")
	createSession(t, st, "u1", "B")
	createSession(t, st, "u2", "C")

	favorite := true
	_, err := st.UpdateChatSession(ctx, &store.UpdateChatSession{ID: a.ID, IsFavorite: &favorite})
	require.NoError(t, err)

	userID := "u1"
	sessions, err := st.ListChatSessions(ctx, &store.FindChatSession{UserID: &userID})
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	favorites, err := st.ListChatSessions(ctx, &store.FindChatSession{UserID: &userID, IsFavorite: &favorite})
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	require.Equal(t, a.ID, favorites[0].ID)
	require.True(t, favorites[0].IsFavorite)
}

func TestUpdateChatSessionAdvancesUpdatedTs(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	sess := createSession(t, st, "u1", "Old title")

	title := "New title"
	updated, err := st.UpdateChatSession(ctx, &store.UpdateChatSession{ID: sess.ID, Title: &title})
	require.NoError(t, err)
	require.Equal(t, "New title", updated.Title)
	require.GreaterOrEqual(t, updated.UpdatedTs, sess.UpdatedTs)
}

func TestMessagesOrderedAndCounted(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	sess := createSession(t, st, "u1", "T")

	contents := []string{"one", "two", "three"}
	for _, content := range contents {
		_, err := st.CreateChatMessage(ctx, &store.CreateChatMessage{
			SessionID: sess.ID,
			Sender:    store.SenderUser,
			Content:   content,
		})
		require.NoError(t, err)
	}

	msgs, err := st.ListChatMessages(ctx, &store.FindChatMessage{SessionID: sess.ID})
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	for i, m := range msgs {
		require.Equal(t, contents[i], m.Content)
		require.Equal(t, store.SenderUser, m.Sender)
	}

	count, err := st.CountChatMessages(ctx, sess.ID)
	require.NoError(t, err)
	require.EqualValues(t, 3, count)

	got, err := st.GetChatSession(ctx, &store.FindChatSession{ID: &sess.ID})
	require.NoError(t, err)
	require.EqualValues(t, 3, got.MessageCount)
}

func TestListChatMessagesPaginated(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	sess := createSession(t, st, "u1", "T")

	for i := 0; i < 5; i++ {
		_, err := st.CreateChatMessage(ctx, &store.CreateChatMessage{
			SessionID: sess.ID,
			Sender:    store.SenderUser,
			Content:   string(rune('a' + i)),
		})
		require.NoError(t, err)
	}

	limit, offset := 2, 2
	page, err := st.ListChatMessages(ctx, &store.FindChatMessage{
		SessionID: sess.ID,
		Limit:     &limit,
		Offset:    &offset,
	})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, "c", page[0].Content)
	require.Equal(t, "d", page[1].Content)
}

func TestDeleteChatSessionCascades(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	sess := createSession(t, st, "u1", "T")

	_, err := st.CreateChatMessage(ctx, &store.CreateChatMessage{
		SessionID: sess.ID,
		Sender:    store.SenderUser,
		Content:   "hello",
	})
	require.NoError(t, err)

	require.NoError(t, st.DeleteChatSession(ctx, sess.ID))

	got, err := st.GetChatSession(ctx, &store.FindChatSession{ID: &sess.ID})
	require.NoError(t, err)
	require.Nil(t, got)

	count, err := st.CountChatMessages(ctx, sess.ID)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestCreateMessageForDeletedSessionFails(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	sess := createSession(t, st, "u1", "T")

	require.NoError(t, st.DeleteChatSession(ctx, sess.ID))

	// A writer that resolved the session before the delete committed must not
	// be able to persist an orphan message.
	_, err := st.CreateChatMessage(ctx, &store.CreateChatMessage{
		SessionID: sess.ID,
		Sender:    store.SenderUser,
		Content:   "late arrival",
	})
	require.Error(t, err)

	count, err := st.CountChatMessages(ctx, sess.ID)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestMessageContextRoundTrips(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	sess := createSession(t, st, "u1", "T")

	m, err := st.CreateChatMessage(ctx, &store.CreateChatMessage{
		SessionID: sess.ID,
		Sender:    store.SenderAIAssistant,
		Content:   "answer",
		Context:   "background info",
	})
	require.NoError(t, err)
	require.Equal(t, "background info", m.Context)

	msgs, err := st.ListChatMessages(ctx, &store.FindChatMessage{SessionID: sess.ID})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, store.SenderAIAssistant, msgs[0].Sender)
	require.Equal(t, "background info", msgs[0].Context)
}
