package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/shopbot/chatbot_api/internal/chatstore"
	"github.com/shopbot/chatbot_api/internal/mykafka"
)

// ChatLog is the per-user message log behind the chat endpoints.
type ChatLog interface {
	Append(ctx context.Context, userID, message, sender, clientTimestamp string) (string, error)
	List(ctx context.Context, userID string) []chatstore.Message
	Clear(ctx context.Context, userID string) error
}

type ChatHandler struct {
	Store    ChatLog
	Producer *mykafka.Producer
}

func (h *ChatHandler) publish(c echo.Context, key string, event map[string]interface{}) {
	if h.Producer == nil {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Producer.PublishEvent(ctx, "chat_events", key, event); err != nil {
		c.Logger().Errorf("kafka publish error: %v", err)
	}
}

func chatUserID(c echo.Context) string {
	userID, _ := c.Get("userID").(uint)
	return strconv.FormatUint(uint64(userID), 10)
}

// History returns the caller's messages in server-timestamp order. A
// broken store degrades to an empty list so the chat UI keeps working.
func (h *ChatHandler) History(c echo.Context) error {
	userID := chatUserID(c)

	messages := h.Store.List(c.Request().Context(), userID)
	out := make([]chatstore.MessageOut, 0, len(messages))
	for i := range messages {
		out = append(out, messages[i].Out())
	}

	return c.JSON(http.StatusOK, out)
}

func (h *ChatHandler) Save(c echo.Context) error {
	userID := chatUserID(c)

	var req struct {
		Message   string `json:"message"`
		Sender    string `json:"sender"`
		Timestamp string `json:"timestamp"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err)
	}

	if req.Message == "" || req.Sender == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"detail": "Message and sender are required.",
		})
	}

	docID, err := h.Store.Append(c.Request().Context(), userID, req.Message, req.Sender, req.Timestamp)
	if err != nil {
		c.Logger().Errorf("chat append failed for user %s: %v", userID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"detail": "Failed to save message.",
		})
	}

	h.publish(c, userID, map[string]interface{}{
		"type":   "chat_message_saved",
		"userID": userID,
		"docID":  docID,
		"sender": req.Sender,
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"detail": "Message saved successfully.",
		"doc_id": docID,
	})
}

// Clear wipes the caller's whole log. Deletes are per-document with no
// rollback, so a failure can leave a partially cleared log behind the
// reported error.
func (h *ChatHandler) Clear(c echo.Context) error {
	userID := chatUserID(c)

	if err := h.Store.Clear(c.Request().Context(), userID); err != nil {
		c.Logger().Errorf("chat clear failed for user %s: %v", userID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"detail": "Failed to clear chat history.",
		})
	}

	h.publish(c, userID, map[string]interface{}{
		"type":   "chat_history_cleared",
		"userID": userID,
	})

	return c.NoContent(http.StatusNoContent)
}
