package handler

import (
	"net/http"

	"github.com/Divine-P-77777/studylocal/internal/room"
	"github.com/gin-gonic/gin"
)

type postMessageRequest struct {
	Body        string `json:"body"`
	ClientToken string `json:"client_token"`
}

// PostMessage stores a message and broadcasts it to the room's members.
func (h *Handler) PostMessage(c *gin.Context) {
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := c.Request.Context()
	caller := identityFrom(c)
	msg, err := h.Hub.Submit(ctx, caller, h.displayName(ctx, caller.UserID), c.Param("roomId"), req.Body, req.ClientToken)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// History returns the room's messages in timestamp order. Non-participants
// get the same 403 whether or not the room has messages.
func (h *Handler) History(c *gin.Context) {
	caller := identityFrom(c)
	roomID := c.Param("roomId")
	if !room.IsParticipant(roomID, caller.UserID, caller.TutorProfileID) {
		ErrorResponse(c, http.StatusForbidden, msgNotAuthorized)
		return
	}

	list, err := h.Messages.ListByRoom(c.Request.Context(), roomID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// DeleteMessage removes one of the caller's own messages.
func (h *Handler) DeleteMessage(c *gin.Context) {
	if err := h.Hub.Remove(c.Request.Context(), identityFrom(c), c.Param("messageId")); err != nil {
		HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListConversations returns the caller's rooms, most recent first.
func (h *Handler) ListConversations(c *gin.Context) {
	list, err := h.Conversations.For(c.Request.Context(), identityFrom(c))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
