package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/bashbay-client/internal/messaging"
	"github.com/joshua-takyi/bashbay-client/internal/models"
)

const openWait = 5 * time.Second

type sendMessageRequest struct {
	Content string `json:"content" binding:"required"`
	ReplyTo string `json:"reply_to"`
}

type editMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

type reactionRequest struct {
	Reaction string `json:"reaction" binding:"required"`
}

type typingRequest struct {
	Typing bool `json:"typing"`
}

// openSession looks up the caller's session for :conversation_id.
func openSession(c *gin.Context, m *messaging.Manager) (*messaging.Session, bool) {
	claims, ok := currentUser(c)
	if !ok {
		return nil, false
	}
	conversationID := c.Param("conversation_id")
	s, ok := m.Session(claims.UserID(), conversationID)
	if !ok {
		c.JSON(http.StatusNotFound, models.ErrorResponse(fmt.Errorf("%w: conversation %s is not open", models.ErrNotFound, conversationID)))
		return nil, false
	}
	return s, true
}

// ListConversations starts the caller's conversation feed if needed and
// returns the list fetched fresh over REST.
func ListConversations(m *messaging.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := currentUser(c)
		if !ok {
			return
		}
		feed, err := m.OpenFeed(c.Request.Context(), claims.UserID())
		if err != nil {
			_ = c.Error(err)
			return
		}
		if err := feed.Refresh(c.Request.Context()); err != nil {
			_ = c.Error(err)
			return
		}
		snap := feed.Snapshot()
		c.JSON(http.StatusOK, models.ListResponse(snap, len(snap.Conversations)))
	}
}

// StreamConversations pushes the conversation list as server-sent events.
func StreamConversations(m *messaging.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := currentUser(c)
		if !ok {
			return
		}
		feed, err := m.OpenFeed(c.Request.Context(), claims.UserID())
		if err != nil {
			_ = c.Error(err)
			return
		}
		changes, unsubscribe := feed.Subscribe()
		defer unsubscribe()

		streamSnapshots(c, changes, func() any { return feed.Snapshot() })
	}
}

// OpenConversation replaces any session the caller had for the
// conversation and waits briefly for the socket and first history page.
func OpenConversation(m *messaging.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := currentUser(c)
		if !ok {
			return
		}
		s, err := m.Open(c.Request.Context(), claims.UserID(), c.Param("conversation_id"))
		if err != nil {
			_ = c.Error(err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), openWait)
		defer cancel()
		_ = s.Ready(ctx)

		c.JSON(http.StatusOK, models.SuccessResponse(s.Snapshot(), ""))
	}
}

func GetConversation(m *messaging.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := openSession(c, m)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(s.Snapshot(), ""))
	}
}

func StreamConversation(m *messaging.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := openSession(c, m)
		if !ok {
			return
		}
		changes, unsubscribe := s.Subscribe()
		defer unsubscribe()

		streamSnapshots(c, changes, func() any { return s.Snapshot() })
	}
}

func CloseConversation(m *messaging.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := currentUser(c)
		if !ok {
			return
		}
		closed := m.Close(claims.UserID(), c.Param("conversation_id"))
		c.JSON(http.StatusOK, models.SuccessResponse(gin.H{"closed": closed}, ""))
	}
}

func LoadOlderMessages(m *messaging.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := openSession(c, m)
		if !ok {
			return
		}
		if _, err := s.LoadOlder(c.Request.Context()); err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(s.Snapshot(), ""))
	}
}

func SendMessage(m *messaging.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := openSession(c, m)
		if !ok {
			return
		}
		var req sendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse(fmt.Errorf("%w: %v", models.ErrValidation, err)))
			return
		}
		if err := s.Send(req.Content, req.ReplyTo); err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusAccepted, models.SuccessResponse(nil, "Message sent"))
	}
}

func EditMessage(m *messaging.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := openSession(c, m)
		if !ok {
			return
		}
		var req editMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse(fmt.Errorf("%w: %v", models.ErrValidation, err)))
			return
		}
		if err := s.Edit(c.Param("message_id"), req.Content); err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusAccepted, models.SuccessResponse(nil, "Edit sent"))
	}
}

func AddReaction(m *messaging.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := openSession(c, m)
		if !ok {
			return
		}
		var req reactionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse(fmt.Errorf("%w: %v", models.ErrValidation, err)))
			return
		}
		if err := s.React(c.Param("message_id"), req.Reaction); err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusAccepted, models.SuccessResponse(nil, "Reaction sent"))
	}
}

func RemoveReaction(m *messaging.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := openSession(c, m)
		if !ok {
			return
		}
		if err := s.RemoveReaction(c.Param("message_id"), c.Query("reaction")); err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusAccepted, models.SuccessResponse(nil, "Reaction removed"))
	}
}

func SetTyping(m *messaging.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := openSession(c, m)
		if !ok {
			return
		}
		var req typingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse(fmt.Errorf("%w: %v", models.ErrValidation, err)))
			return
		}
		if err := s.SetTyping(req.Typing); err != nil {
			_ = c.Error(err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// streamSnapshots writes one "snapshot" event up front and another after
// every change until the client leaves or the source closes.
func streamSnapshots(c *gin.Context, changes <-chan struct{}, snapshot func() any) {
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("snapshot", snapshot())
	c.Writer.Flush()

	c.Stream(func(io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case _, ok := <-changes:
			if !ok {
				c.SSEvent("snapshot", snapshot())
				return false
			}
			c.SSEvent("snapshot", snapshot())
			return true
		}
	})
}
