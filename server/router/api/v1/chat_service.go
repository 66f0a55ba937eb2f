package v1

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v5"
	"github.com/lithammer/shortuuid/v4"

	"github.com/ragchat/ragchat/store"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	// recallSnippets caps how many earlier messages feed the derived context.
	recallSnippets = 3
)

// ─────────────────────────────────────────────────────────────────────────────
// Request / Response types
// ─────────────────────────────────────────────────────────────────────────────

type createSessionRequest struct {
	UserID string `json:"userId"`
	Title  string `json:"title"`
}

type sendMessageRequest struct {
	Content string `json:"content"`
	Context string `json:"context"`
	// UseAI defaults to true when the field is omitted; an explicit JSON null
	// disables augmentation like false does.
	UseAI *bool `json:"useAI"`
}

type renameSessionRequest struct {
	NewTitle string `json:"newTitle"`
}

type toggleFavoriteRequest struct {
	IsFavorite *bool `json:"isFavorite"`
}

type sessionResponse struct {
	ID           int32  `json:"id"`
	UID          string `json:"uid"`
	UserID       string `json:"userId"`
	Title        string `json:"title"`
	IsFavorite   bool   `json:"isFavorite"`
	CreatedTs    int64  `json:"createdTs"`
	UpdatedTs    int64  `json:"updatedTs"`
	MessageCount int32  `json:"messageCount"`
}

type messageResponse struct {
	ID        int32  `json:"id"`
	SessionID int32  `json:"sessionId"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	Context   string `json:"context,omitempty"`
	CreatedTs int64  `json:"createdTs"`
}

type sessionWithMessagesResponse struct {
	sessionResponse
	Messages []messageResponse `json:"messages"`
}

type pageResponse struct {
	Content       []messageResponse `json:"content"`
	Page          int               `json:"page"`
	Size          int               `json:"size"`
	TotalElements int64             `json:"totalElements"`
	TotalPages    int               `json:"totalPages"`
	Last          bool              `json:"last"`
}

// apiResponse is the envelope every endpoint answers with.
type apiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func ok(data any) apiResponse {
	return apiResponse{Success: true, Data: data}
}

func okMessage(message string, data any) apiResponse {
	return apiResponse{Success: true, Message: message, Data: data}
}

func fail(message string) apiResponse {
	return apiResponse{Success: false, Message: message}
}

func toSessionResponse(s *store.ChatSession) sessionResponse {
	return sessionResponse{
		ID:           s.ID,
		UID:          s.UID,
		UserID:       s.UserID,
		Title:        s.Title,
		IsFavorite:   s.IsFavorite,
		CreatedTs:    s.CreatedTs,
		UpdatedTs:    s.UpdatedTs,
		MessageCount: s.MessageCount,
	}
}

func toMessageResponse(m *store.ChatMessage) messageResponse {
	return messageResponse{
		ID:        m.ID,
		SessionID: m.SessionID,
		Sender:    string(m.Sender),
		Content:   m.Content,
		Context:   m.Context,
		CreatedTs: m.CreatedTs,
	}
}

func toMessageResponses(msgs []*store.ChatMessage) []messageResponse {
	resp := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		resp = append(resp, toMessageResponse(m))
	}
	return resp
}

// ─────────────────────────────────────────────────────────────────────────────
// Route registration
// ─────────────────────────────────────────────────────────────────────────────

func (s *APIV1Service) registerChatRoutes(e *echo.Echo) {
	g := e.Group("/api/v1/chat")
	g.POST("/sessions", s.createChatSession)
	g.POST("/sessions/:sessionId/messages", s.sendChatMessage)
	g.GET("/sessions/:sessionId/messages", s.getChatMessages)
	g.GET("/sessions/:sessionId/messages/paginated", s.getChatMessagesPaginated)
	g.GET("/sessions/:sessionId", s.getChatSessionWithMessages)
	g.GET("/users/:userId/sessions", s.listUserSessions)
	g.GET("/users/:userId/sessions/favorites", s.listFavoriteSessions)
	g.PUT("/sessions/:sessionId/rename", s.renameChatSession)
	g.PUT("/sessions/:sessionId/favorite", s.toggleChatSessionFavorite)
	g.DELETE("/sessions/:sessionId", s.deleteChatSession)
}

func sessionIDParam(c *echo.Context) (int32, error) {
	raw := c.Param("sessionId")
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid session id %q", raw)
	}
	return int32(id), nil
}

// lookupSession resolves the path parameter to a session, or writes the 404
// envelope and returns handled=true.
func (s *APIV1Service) lookupSession(c *echo.Context, id int32) (*store.ChatSession, bool, error) {
	sess, err := s.Store.GetChatSession(c.Request().Context(), &store.FindChatSession{ID: &id})
	if err != nil {
		return nil, true, c.JSON(http.StatusInternalServerError, fail(err.Error()))
	}
	if sess == nil {
		return nil, true, c.JSON(http.StatusNotFound, fail(fmt.Sprintf("Session not found with ID: %d", id)))
	}
	return sess, false, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Session CRUD
// ─────────────────────────────────────────────────────────────────────────────

func (s *APIV1Service) createChatSession(c *echo.Context) error {
	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, fail("invalid request body"))
	}
	if strings.TrimSpace(req.UserID) == "" {
		return c.JSON(http.StatusBadRequest, fail("userId is required"))
	}
	if strings.TrimSpace(req.Title) == "" {
		return c.JSON(http.StatusBadRequest, fail("title is required"))
	}

	slog.Info("creating chat session", "user", req.UserID)
	sess, err := s.Store.CreateChatSession(c.Request().Context(), &store.ChatSession{
		UID:        shortuuid.New(),
		UserID:     req.UserID,
		Title:      req.Title,
		IsFavorite: false,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fail(err.Error()))
	}
	return c.JSON(http.StatusCreated, okMessage("Session created successfully", toSessionResponse(sess)))
}

func (s *APIV1Service) listUserSessions(c *echo.Context) error {
	userID := c.Param("userId")
	sessions, err := s.Store.ListChatSessions(c.Request().Context(), &store.FindChatSession{UserID: &userID})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fail(err.Error()))
	}
	resp := make([]sessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		resp = append(resp, toSessionResponse(sess))
	}
	return c.JSON(http.StatusOK, ok(resp))
}

func (s *APIV1Service) listFavoriteSessions(c *echo.Context) error {
	userID := c.Param("userId")
	favorite := true
	sessions, err := s.Store.ListChatSessions(c.Request().Context(), &store.FindChatSession{
		UserID:     &userID,
		IsFavorite: &favorite,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fail(err.Error()))
	}
	resp := make([]sessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		resp = append(resp, toSessionResponse(sess))
	}
	return c.JSON(http.StatusOK, ok(resp))
}

func (s *APIV1Service) getChatSessionWithMessages(c *echo.Context) error {
	id, err := sessionIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, fail(err.Error()))
	}
	sess, handled, err := s.lookupSession(c, id)
	if handled {
		return err
	}
	msgs, err := s.Store.ListChatMessages(c.Request().Context(), &store.FindChatMessage{SessionID: sess.ID})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fail(err.Error()))
	}
	return c.JSON(http.StatusOK, ok(sessionWithMessagesResponse{
		sessionResponse: toSessionResponse(sess),
		Messages:        toMessageResponses(msgs),
	}))
}

func (s *APIV1Service) renameChatSession(c *echo.Context) error {
	id, err := sessionIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, fail(err.Error()))
	}
	var req renameSessionRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.NewTitle) == "" {
		return c.JSON(http.StatusBadRequest, fail("newTitle is required"))
	}
	if _, handled, err := s.lookupSession(c, id); handled {
		return err
	}

	slog.Info("renaming chat session", "session", id, "title", req.NewTitle)
	updated, err := s.Store.UpdateChatSession(c.Request().Context(), &store.UpdateChatSession{
		ID:    id,
		Title: &req.NewTitle,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fail(err.Error()))
	}
	if updated == nil {
		// Deleted between lookup and update.
		return c.JSON(http.StatusNotFound, fail(fmt.Sprintf("Session not found with ID: %d", id)))
	}
	return c.JSON(http.StatusOK, okMessage("Session renamed successfully", toSessionResponse(updated)))
}

func (s *APIV1Service) toggleChatSessionFavorite(c *echo.Context) error {
	id, err := sessionIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, fail(err.Error()))
	}
	var req toggleFavoriteRequest
	if err := c.Bind(&req); err != nil || req.IsFavorite == nil {
		return c.JSON(http.StatusBadRequest, fail("isFavorite is required"))
	}
	if _, handled, err := s.lookupSession(c, id); handled {
		return err
	}

	updated, err := s.Store.UpdateChatSession(c.Request().Context(), &store.UpdateChatSession{
		ID:         id,
		IsFavorite: req.IsFavorite,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fail(err.Error()))
	}
	if updated == nil {
		return c.JSON(http.StatusNotFound, fail(fmt.Sprintf("Session not found with ID: %d", id)))
	}
	return c.JSON(http.StatusOK, okMessage("Favorite status updated successfully", toSessionResponse(updated)))
}

func (s *APIV1Service) deleteChatSession(c *echo.Context) error {
	id, err := sessionIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, fail(err.Error()))
	}
	if _, handled, err := s.lookupSession(c, id); handled {
		return err
	}

	slog.Info("deleting chat session", "session", id)
	if err := s.Store.DeleteChatSession(c.Request().Context(), id); err != nil {
		return c.JSON(http.StatusInternalServerError, fail(err.Error()))
	}
	if s.VectorStore != nil {
		if err := s.VectorStore.DropSession(c.Request().Context(), id); err != nil {
			slog.Warn("failed to drop session vectors", "session", id, "err", err)
		}
	}
	return c.JSON(http.StatusOK, okMessage("Session deleted successfully", nil))
}

// ─────────────────────────────────────────────────────────────────────────────
// Messages
// ─────────────────────────────────────────────────────────────────────────────

func (s *APIV1Service) sendChatMessage(c *echo.Context) error {
	id, err := sessionIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, fail(err.Error()))
	}
	// Pre-set UseAI so an omitted field keeps the default while an explicit
	// null overwrites it to nil.
	useAIDefault := true
	req := sendMessageRequest{UseAI: &useAIDefault}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, fail("invalid request body"))
	}
	if strings.TrimSpace(req.Content) == "" {
		return c.JSON(http.StatusBadRequest, fail("content is required"))
	}

	ctx := c.Request().Context()
	sess, handled, err := s.lookupSession(c, id)
	if handled {
		return err
	}

	userMsg, err := s.Store.CreateChatMessage(ctx, &store.CreateChatMessage{
		SessionID: sess.ID,
		Sender:    store.SenderUser,
		Content:   req.Content,
		Context:   req.Context,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fail(err.Error()))
	}

	useAI := req.UseAI != nil && *req.UseAI
	result := userMsg
	if useAI && s.Assistant.IsAvailable() {
		contextText := req.Context
		if contextText == "" && s.VectorStore != nil {
			contextText = s.VectorStore.ContextFor(ctx, sess.ID, req.Content, recallSnippets)
		}
		answer := s.Assistant.GenerateResponse(ctx, req.Content, contextText)

		aiMsg, err := s.Store.CreateChatMessage(ctx, &store.CreateChatMessage{
			SessionID: sess.ID,
			Sender:    store.SenderAIAssistant,
			Content:   answer,
			Context:   req.Context,
		})
		if err != nil {
			return c.JSON(http.StatusInternalServerError, fail(err.Error()))
		}
		slog.Info("AI response generated", "session", sess.ID)
		result = aiMsg
	}

	// Index after recall so a message never recalls itself.
	if s.VectorStore != nil {
		if err := s.VectorStore.IndexMessage(ctx, sess.ID, userMsg.ID, userMsg.Content); err != nil {
			slog.Warn("failed to index message", "session", sess.ID, "err", err)
		}
	}

	return c.JSON(http.StatusOK, okMessage("Message sent successfully", toMessageResponse(result)))
}

func (s *APIV1Service) getChatMessages(c *echo.Context) error {
	id, err := sessionIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, fail(err.Error()))
	}
	sess, handled, err := s.lookupSession(c, id)
	if handled {
		return err
	}
	msgs, err := s.Store.ListChatMessages(c.Request().Context(), &store.FindChatMessage{SessionID: sess.ID})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fail(err.Error()))
	}
	return c.JSON(http.StatusOK, ok(toMessageResponses(msgs)))
}

func (s *APIV1Service) getChatMessagesPaginated(c *echo.Context) error {
	id, err := sessionIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, fail(err.Error()))
	}
	page, size, err := pageParams(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, fail(err.Error()))
	}
	sess, handled, err := s.lookupSession(c, id)
	if handled {
		return err
	}

	ctx := c.Request().Context()
	total, err := s.Store.CountChatMessages(ctx, sess.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fail(err.Error()))
	}
	offset := page * size
	msgs, err := s.Store.ListChatMessages(ctx, &store.FindChatMessage{
		SessionID: sess.ID,
		Limit:     &size,
		Offset:    &offset,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fail(err.Error()))
	}

	totalPages := int((total + int64(size) - 1) / int64(size))
	return c.JSON(http.StatusOK, ok(pageResponse{
		Content:       toMessageResponses(msgs),
		Page:          page,
		Size:          size,
		TotalElements: total,
		TotalPages:    totalPages,
		Last:          page+1 >= totalPages,
	}))
}

func pageParams(c *echo.Context) (page, size int, err error) {
	page, size = 0, defaultPageSize
	if raw := c.QueryParam("page"); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 0 {
			return 0, 0, fmt.Errorf("invalid page parameter %q", raw)
		}
	}
	if raw := c.QueryParam("size"); raw != "" {
		size, err = strconv.Atoi(raw)
		if err != nil || size < 1 || size > maxPageSize {
			return 0, 0, fmt.Errorf("invalid size parameter %q", raw)
		}
	}
	return page, size, nil
}
