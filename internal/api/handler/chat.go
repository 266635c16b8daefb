package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/sachirademein17/mindcareapp-sub000/internal/chathub"
	"github.com/sachirademein17/mindcareapp-sub000/internal/storage"
)

func strconvUint(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func parseUint(s string) (uint, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil || n == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(n), nil
}

func peerParam(c *gin.Context) (uint, bool) {
	id, err := parseUint(c.Param("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return 0, false
	}
	return id, true
}

type sendRequest struct {
	Message   string `json:"message"`
	ClientRef string `json:"clientRef"`
}

// SendMessage is the durable-write entry point: persist first, then hand
// the saved record to the hub for live delivery. The hub relays with the
// persisted identity, so a concurrent socket relay of the same send cannot
// write twice.
func (h *Handler) SendMessage(c *gin.Context) {
	p, ok := CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	receiverID, ok := peerParam(c)
	if !ok {
		return
	}

	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "receiver ID and message are required"})
		return
	}

	msg, err := h.Store.SendMessage(c.Request.Context(), p.UserID, receiverID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrEmptyMessage):
			c.JSON(http.StatusBadRequest, gin.H{"error": "message must not be empty"})
		case errors.Is(err, storage.ErrReceiverNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "receiver not found"})
		default:
			log.Error().Err(err).Uint("sender", p.UserID).Uint("receiver", receiverID).Msg("send failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send message"})
		}
		return
	}

	msg.ClientRef = req.ClientRef
	h.Hub.Dispatch(chathub.DispatchRequest{
		SenderID:    msg.SenderID,
		ReceiverID:  msg.ReceiverID,
		Body:        msg.Body,
		ClientRef:   msg.ClientRef,
		PersistedID: msg.ID,
		PersistedAt: msg.CreatedAt,
	})

	c.JSON(http.StatusCreated, msg)
}

// GetMessages returns the conversation with the peer, oldest first. The
// fetch acknowledges receipt: the peer's unread messages to the caller are
// marked read.
func (h *Handler) GetMessages(c *gin.Context) {
	p, ok := CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	peerID, ok := peerParam(c)
	if !ok {
		return
	}

	msgs, err := h.Store.History(c.Request.Context(), p.UserID, peerID)
	if err != nil {
		log.Error().Err(err).Uint("caller", p.UserID).Uint("peer", peerID).Msg("history failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch messages"})
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// GetChatList returns one summary per peer with the latest message and the
// unread count.
func (h *Handler) GetChatList(c *gin.Context) {
	p, ok := CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	sums, err := h.Store.Summaries(c.Request.Context(), p.UserID)
	if err != nil {
		log.Error().Err(err).Uint("caller", p.UserID).Msg("chat list failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch chat list"})
		return
	}
	c.JSON(http.StatusOK, sums)
}

// MarkAsRead acknowledges the peer's messages without fetching them.
func (h *Handler) MarkAsRead(c *gin.Context) {
	p, ok := CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	peerID, ok := peerParam(c)
	if !ok {
		return
	}

	n, err := h.Store.MarkRead(c.Request.Context(), p.UserID, peerID)
	if err != nil {
		log.Error().Err(err).Uint("caller", p.UserID).Uint("peer", peerID).Msg("mark read failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark messages as read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}
