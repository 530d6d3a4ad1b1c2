package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/teamsync/teamsync/internal/realtime"
	"github.com/teamsync/teamsync/internal/services"
	"github.com/teamsync/teamsync/pkg/response"
)

const defaultChatHistory = 50

// ChatHandler serves the team channel.
type ChatHandler struct {
	chat   *services.ChatService
	roster *services.TeamRoster
	hub    *realtime.Hub
}

type postMessageRequest struct {
	Body string `json:"body" validate:"required,max=4000"`
}

// NewChatHandler constructs a ChatHandler. hub may be nil.
func NewChatHandler(chat *services.ChatService, roster *services.TeamRoster, hub *realtime.Hub) (*ChatHandler, error) {
	if chat == nil || roster == nil {
		return nil, errors.New("chat handler: chat and roster are required")
	}
	return &ChatHandler{chat: chat, roster: roster, hub: hub}, nil
}

// POST /api/teams/:teamID/chat
func (h *ChatHandler) Post(c *gin.Context) {
	var body postMessageRequest
	if !bindAndValidate(c, &body) {
		return
	}

	ctx := requestContext(c)
	author, err := h.roster.GetMember(ctx, c.Param("teamID"), callerFrom(c).MemberID)
	if err != nil {
		response.Error(c, err)
		return
	}

	message, err := h.chat.Post(ctx, author, body.Body)
	if err != nil {
		response.Error(c, err)
		return
	}

	if h.hub != nil {
		h.hub.Broadcast(author.TeamID, realtime.Message{
			Event: realtime.EventChatMessage,
			Data:  message,
		})
	}
	response.Success(c, http.StatusCreated, message)
}

// GET /api/teams/:teamID/chat?limit=50
func (h *ChatHandler) History(c *gin.Context) {
	limit, err := queryInt(c, "limit", defaultChatHistory)
	if err != nil {
		response.Error(c, err)
		return
	}
	messages, err := h.chat.History(requestContext(c), c.Param("teamID"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, messages, &response.Meta{Total: len(messages)})
}
