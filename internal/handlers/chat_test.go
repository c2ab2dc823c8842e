package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shopbot/chatbot_api/internal/chatstore"
	"github.com/shopbot/chatbot_api/internal/handlers"
)

type fakeChatLog struct {
	messages   []chatstore.Message
	failAppend bool
	failList   bool
	failClear  bool
}

func (f *fakeChatLog) Append(_ context.Context, userID, message, sender, clientTimestamp string) (string, error) {
	if f.failAppend {
		return "", errors.New("store unreachable")
	}
	id := primitive.NewObjectID()
	f.messages = append(f.messages, chatstore.Message{
		ID:              id,
		UserID:          userID,
		Message:         message,
		Sender:          sender,
		Timestamp:       time.Now().UTC().Add(time.Duration(len(f.messages)) * time.Millisecond),
		ClientTimestamp: clientTimestamp,
	})
	return id.Hex(), nil
}

func (f *fakeChatLog) List(_ context.Context, userID string) []chatstore.Message {
	if f.failList {
		return []chatstore.Message{}
	}
	out := []chatstore.Message{}
	for _, m := range f.messages {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeChatLog) Clear(_ context.Context, userID string) error {
	if f.failClear {
		return errors.New("store unreachable")
	}
	kept := f.messages[:0]
	for _, m := range f.messages {
		if m.UserID != userID {
			kept = append(kept, m)
		}
	}
	f.messages = kept
	return nil
}

func newChatEnv(t *testing.T) (*testEnv, *handlers.ChatHandler, *fakeChatLog) {
	env := newTestEnv(t)
	store := &fakeChatLog{}
	return env, &handlers.ChatHandler{Store: store}, store
}

func asUser(c echo.Context, userID uint) {
	c.Set("userID", userID)
}

func saveMessage(t *testing.T, env *testEnv, h *handlers.ChatHandler, userID uint, message, sender string) string {
	t.Helper()

	payload := map[string]string{
		"message":   message,
		"sender":    sender,
		"timestamp": time.Now().Format(time.RFC3339),
	}
	rec, c := env.doJSONRequest(http.MethodPost, "/api/chat/save", payload, nil)
	asUser(c, userID)
	require.NoError(t, h.Save(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Detail string `json:"detail"`
		DocID  string `json:"doc_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "Message saved successfully.", resp.Detail)
	require.NotEmpty(t, resp.DocID)
	return resp.DocID
}

func listHistory(t *testing.T, env *testEnv, h *handlers.ChatHandler, userID uint) []chatstore.MessageOut {
	t.Helper()

	rec, c := env.doJSONRequest(http.MethodGet, "/api/chat/history", nil, nil)
	asUser(c, userID)
	require.NoError(t, h.History(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var out []chatstore.MessageOut
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestChatSaveAndHistory(t *testing.T) {
	env, h, _ := newChatEnv(t)

	id1 := saveMessage(t, env, h, 1, "hello", "user")
	id2 := saveMessage(t, env, h, 1, "hi, how can I help?", "bot")
	require.NotEqual(t, id1, id2)

	history := listHistory(t, env, h, 1)
	require.Len(t, history, 2)
	require.Equal(t, "hello", history[0].Message)
	require.Equal(t, "user", history[0].Sender)
	require.Equal(t, "hi, how can I help?", history[1].Message)
	require.Equal(t, "bot", history[1].Sender)

	// server timestamps are ISO strings in append order
	ts1, err := time.Parse(time.RFC3339Nano, history[0].Timestamp)
	require.NoError(t, err)
	ts2, err := time.Parse(time.RFC3339Nano, history[1].Timestamp)
	require.NoError(t, err)
	require.True(t, ts1.Before(ts2))
}

func TestChatHistoryIsPerUser(t *testing.T) {
	env, h, _ := newChatEnv(t)

	saveMessage(t, env, h, 1, "mine", "user")
	saveMessage(t, env, h, 2, "not yours", "user")

	history := listHistory(t, env, h, 1)
	require.Len(t, history, 1)
	require.Equal(t, "mine", history[0].Message)
}

func TestChatSaveMissingFields(t *testing.T) {
	env, h, _ := newChatEnv(t)

	cases := []map[string]string{
		{"sender": "user"},
		{"message": "hello"},
		{},
	}
	for _, payload := range cases {
		rec, c := env.doJSONRequest(http.MethodPost, "/api/chat/save", payload, nil)
		asUser(c, 1)
		require.NoError(t, h.Save(c))
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "Message and sender are required.", resp["detail"])
	}
}

func TestChatSaveStoreFailure(t *testing.T) {
	env, h, store := newChatEnv(t)
	store.failAppend = true

	payload := map[string]string{"message": "hello", "sender": "user"}
	rec, c := env.doJSONRequest(http.MethodPost, "/api/chat/save", payload, nil)
	asUser(c, 1)
	require.NoError(t, h.Save(c))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "Failed to save message.", resp["detail"])
}

func TestChatHistoryDegradesToEmptyList(t *testing.T) {
	env, h, store := newChatEnv(t)

	saveMessage(t, env, h, 1, "hello", "user")
	store.failList = true

	rec, c := env.doJSONRequest(http.MethodGet, "/api/chat/history", nil, nil)
	asUser(c, 1)
	require.NoError(t, h.History(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, "[]", rec.Body.String())
}

func TestChatClear(t *testing.T) {
	env, h, _ := newChatEnv(t)

	saveMessage(t, env, h, 1, "hello", "user")
	saveMessage(t, env, h, 1, "hi", "bot")
	saveMessage(t, env, h, 2, "keep me", "user")

	rec, c := env.doJSONRequest(http.MethodDelete, "/api/chat/clear", nil, nil)
	asUser(c, 1)
	require.NoError(t, h.Clear(c))
	require.Equal(t, http.StatusNoContent, rec.Code)

	require.Empty(t, listHistory(t, env, h, 1))
	require.Len(t, listHistory(t, env, h, 2), 1)
}

func TestChatClearStoreFailure(t *testing.T) {
	env, h, store := newChatEnv(t)
	store.failClear = true

	rec, c := env.doJSONRequest(http.MethodDelete, "/api/chat/clear", nil, nil)
	asUser(c, 1)
	require.NoError(t, h.Clear(c))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "Failed to clear chat history.", resp["detail"])
}

func TestChatRequiresAuth(t *testing.T) {
	env, h, _ := newChatEnv(t)

	history := env.Auth.RequireAuth(h.History)
	_, c := env.doJSONRequest(http.MethodGet, "/api/chat/history", nil, nil)
	requireHTTPError(t, history(c), http.StatusUnauthorized)
}
