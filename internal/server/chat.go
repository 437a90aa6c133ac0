package server

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/planwise/planwise/internal/chat"
	"github.com/planwise/planwise/internal/runtime"
	"github.com/planwise/planwise/internal/store"
)

// ChatService is the part of chat.Service the HTTP layer uses.
type ChatService interface {
	HandleTurn(ctx context.Context, userID string, in chat.TurnInput) (chat.TurnResult, error)
	ListConversations(ctx context.Context, userID string) ([]store.ConversationListing, error)
	GetConversation(ctx context.Context, userID, id string) (chat.ConversationDetail, error)
}

type ChatHandler struct {
	Chat ChatService
}

func (h *ChatHandler) Register(api *echo.Group, secret []byte) {
	auth := runtime.EchoAuthMiddleware(secret)
	api.GET("/conversations", h.list, auth)
	api.GET("/conversations/:id", h.get, auth)
	api.POST("/chat/messages", h.send, auth)
}

// List conversations
//
//	@Summary	List the caller's conversations, most recently updated first
//	@Tags		chat
//	@Produce	json
//	@Success	200	{array}		ConversationResponse
//	@Failure	401	{object}	HTTPError
//	@Router		/api/conversations [get]
func (h *ChatHandler) list(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	rows, err := h.Chat.ListConversations(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	out := make([]ConversationResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, toConversationResponse(r))
	}
	return c.JSON(http.StatusOK, out)
}

// Get conversation
//
//	@Summary	Conversation with messages and event plan
//	@Tags		chat
//	@Produce	json
//	@Param		id	path		string	true	"Conversation ID"
//	@Success	200	{object}	ConversationDetailResponse
//	@Failure	400	{object}	HTTPError
//	@Failure	404	{object}	HTTPError
//	@Router		/api/conversations/{id} [get]
func (h *ChatHandler) get(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	detail, err := h.Chat.GetConversation(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toDetailResponse(detail))
}

// Send message
//
//	@Summary	Send a chat message and receive the assistant reply
//	@Tags		chat
//	@Accept		json
//	@Produce	json
//	@Param		payload	body		chat.TurnInput	true	"Message payload"
//	@Success	200		{object}	ChatMessageResponse
//	@Failure	400		{object}	HTTPError
//	@Failure	404		{object}	HTTPError
//	@Failure	500		{object}	HTTPError
//	@Router		/api/chat/messages [post]
func (h *ChatHandler) send(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var in chat.TurnInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	in.Referer = requestOrigin(c.Request())
	res, err := h.Chat.HandleTurn(c.Request().Context(), userID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toChatResponse(res))
}

// currentUser reads the subject EchoAuthMiddleware stored on the request.
func currentUser(c echo.Context) (string, error) {
	sub, ok := runtime.SubjectFromContext(c.Request().Context())
	if !ok || sub == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return sub, nil
}

func requestOrigin(r *http.Request) string {
	if o := r.Header.Get("Origin"); o != "" {
		return o
	}
	return r.Header.Get("Referer")
}
