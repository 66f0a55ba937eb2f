package v1

import (
	"context"

	"github.com/labstack/echo/v5"

	"github.com/ragchat/ragchat/plugin/vectorstore"
	"github.com/ragchat/ragchat/server/profile"
	"github.com/ragchat/ragchat/store"
)

// Responder generates assistant replies for user messages. It never fails;
// degraded outcomes are encoded in the returned text.
type Responder interface {
	IsAvailable() bool
	GenerateResponse(ctx context.Context, message, contextText string) string
}

// APIV1Service bundles the dependencies of the /api/v1 handlers.
type APIV1Service struct {
	Profile   *profile.Profile
	Store     *store.Store
	Assistant Responder
	// VectorStore is optional; nil disables semantic message memory.
	VectorStore *vectorstore.Store
}

func NewAPIV1Service(profile *profile.Profile, store *store.Store, assistant Responder, vectorStore *vectorstore.Store) *APIV1Service {
	return &APIV1Service{
		Profile:     profile,
		Store:       store,
		Assistant:   assistant,
		VectorStore: vectorStore,
	}
}

// RegisterRoutes mounts all v1 routes on the echo instance.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	s.registerChatRoutes(e)
}
