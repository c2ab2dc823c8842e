// Package chatstore keeps per-user chat logs in MongoDB. Every document
// carries the deployment's app id and the owning user id, so one cluster
// can serve several deployments without collision.
package chatstore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "chat_history"

var ErrNotConfigured = errors.New("chatstore: client is not configured")

type Message struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	AppID           string             `bson:"app_id"`
	UserID          string             `bson:"user_id"`
	Message         string             `bson:"message"`
	Sender          string             `bson:"sender"`
	Timestamp       time.Time          `bson:"timestamp"`
	ClientTimestamp string             `bson:"client_timestamp"`
}

// MessageOut is the wire shape of a message. The server timestamp is the
// authoritative ordering key and is rendered as an ISO string.
type MessageOut struct {
	Message         string `json:"message"`
	Sender          string `json:"sender"`
	Timestamp       string `json:"timestamp"`
	ClientTimestamp string `json:"client_timestamp"`
}

func (m *Message) Out() MessageOut {
	out := MessageOut{
		Message:         m.Message,
		Sender:          m.Sender,
		ClientTimestamp: m.ClientTimestamp,
	}
	if !m.Timestamp.IsZero() {
		out.Timestamp = m.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	return out
}

type Store struct {
	client   *mongo.Client
	database string
	appID    string
}

func New(ctx context.Context, uri, database, appID string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return &Store{client: client, database: database, appID: appID}, nil
}

func (s *Store) collection() *mongo.Collection {
	return s.client.Database(s.database).Collection(collectionName)
}

func (s *Store) userFilter(userID string) bson.M {
	return bson.M{"app_id": s.appID, "user_id": userID}
}

// Append stores one message under the user's log. The server timestamp is
// assigned here, not taken from the client.
func (s *Store) Append(ctx context.Context, userID, message, sender, clientTimestamp string) (string, error) {
	if s == nil || s.client == nil {
		return "", ErrNotConfigured
	}

	doc := Message{
		ID:              primitive.NewObjectID(),
		AppID:           s.appID,
		UserID:          userID,
		Message:         message,
		Sender:          sender,
		Timestamp:       time.Now().UTC(),
		ClientTimestamp: clientTimestamp,
	}
	if _, err := s.collection().InsertOne(ctx, doc); err != nil {
		return "", err
	}
	return doc.ID.Hex(), nil
}

// List returns the user's messages ordered by server timestamp ascending.
// Any failure degrades to an empty log so the chat UI keeps working.
func (s *Store) List(ctx context.Context, userID string) []Message {
	if s == nil || s.client == nil {
		return []Message{}
	}

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	cur, err := s.collection().Find(ctx, s.userFilter(userID), opts)
	if err != nil {
		return []Message{}
	}
	defer cur.Close(ctx)

	messages := []Message{}
	if err := cur.All(ctx, &messages); err != nil {
		return []Message{}
	}
	return messages
}

// Clear deletes the user's messages one document at a time. The first
// failed delete aborts the operation; documents already removed stay
// removed, there is no rollback.
func (s *Store) Clear(ctx context.Context, userID string) error {
	if s == nil || s.client == nil {
		return ErrNotConfigured
	}

	cur, err := s.collection().Find(ctx, s.userFilter(userID))
	if err != nil {
		return err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var doc struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return err
		}
		if _, err := s.collection().DeleteOne(ctx, bson.M{"_id": doc.ID}); err != nil {
			return err
		}
	}
	return cur.Err()
}

func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}
