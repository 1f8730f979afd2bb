package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/studyflow/supportrelay/internal/metrics"
	"github.com/studyflow/supportrelay/internal/models"
)

// MongoStore persists messages and reads the user directory from MongoDB.
// It implements both MessageStore and UserDirectory.
type MongoStore struct {
	client   *mongo.Client
	messages *mongo.Collection
	users    *mongo.Collection
}

// NewMongoStore connects to MongoDB and ensures the indexes the relay
// queries against.
func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	db := client.Database(dbName)
	s := &MongoStore{
		client:   client,
		messages: db.Collection("messages"),
		users:    db.Collection("users"),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.messages.Indexes().CreateMany(ctx, []mongo.IndexModel{
		// ULID _id already orders by creation; this serves the per-conversation scan.
		{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "_id", Value: 1}}},
		{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "read", Value: 1}}},
	})
	if err != nil {
		return err
	}
	_, err = s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "token", Value: 1}},
		Options: options.Index().SetUnique(true).SetSparse(true),
	})
	return err
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.client.Disconnect(ctx)
}

// Ping checks the MongoDB connection.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// AppendMessage validates and inserts a new message record.
func (s *MongoStore) AppendMessage(ctx context.Context, conversationID, authorID, body string) (*models.Message, error) {
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("%w: message body must not be empty", ErrValidation)
	}

	author, err := s.GetUser(ctx, authorID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	msg := &models.Message{
		ID:             newMessageID(now),
		ConversationID: conversationID,
		AuthorID:       author.ID,
		AuthorRole:     author.Role,
		AuthorName:     author.DisplayName,
		Body:           body,
		CreatedAt:      now,
		Read:           false,
	}

	start := time.Now()
	_, err = s.messages.InsertOne(ctx, msg)
	metrics.StoreLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, wrapUnavailable("append message", err)
	}
	return msg, nil
}

// ListConversation returns the conversation ascending by creation order and
// marks messages authored by others as read for the caller.
func (s *MongoStore) ListConversation(ctx context.Context, conversationID, callerID string) ([]models.Message, error) {
	start := time.Now()
	defer func() { metrics.StoreLatency.Observe(time.Since(start).Seconds()) }()

	// Mark first so the returned records carry the post-read state.
	_, err := s.messages.UpdateMany(ctx,
		bson.M{
			"conversation_id": conversationID,
			"author_id":       bson.M{"$ne": callerID},
			"read":            false,
		},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return nil, wrapUnavailable("mark read", err)
	}

	cur, err := s.messages.Find(ctx,
		bson.M{"conversation_id": conversationID},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, wrapUnavailable("list conversation", err)
	}
	defer cur.Close(ctx)

	var msgs []models.Message
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, wrapUnavailable("list conversation", err)
	}
	return msgs, nil
}

// conversationSummary is the aggregation shape before directory join fields
// are lifted out.
type conversationSummary struct {
	ID           string         `bson:"_id"`
	Last         models.Message `bson:"last"`
	UnreadCount  int            `bson:"unread_count"`
	RequesterDoc []models.User  `bson:"requester"`
}

// SummarizeConversations groups the log by conversation identity and keeps
// only conversations owned by requester-role identities.
func (s *MongoStore) SummarizeConversations(ctx context.Context, callerID string) ([]models.Conversation, error) {
	start := time.Now()
	defer func() { metrics.StoreLatency.Observe(time.Since(start).Seconds()) }()

	pipeline := mongo.Pipeline{
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$conversation_id"},
			{Key: "last", Value: bson.D{{Key: "$last", Value: "$$ROOT"}}},
			{Key: "unread_count", Value: bson.D{{Key: "$sum", Value: bson.D{
				{Key: "$cond", Value: bson.A{
					bson.D{{Key: "$and", Value: bson.A{
						bson.D{{Key: "$eq", Value: bson.A{"$read", false}}},
						bson.D{{Key: "$ne", Value: bson.A{"$author_id", callerID}}},
					}}},
					1, 0,
				}},
			}}}},
		}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: "users"},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "requester"},
		}}},
		{{Key: "$match", Value: bson.D{
			{Key: "requester.role", Value: models.RoleRequester},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "last.created_at", Value: -1}}}},
	}

	cur, err := s.messages.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, wrapUnavailable("summarize conversations", err)
	}
	defer cur.Close(ctx)

	var rows []conversationSummary
	if err := cur.All(ctx, &rows); err != nil {
		return nil, wrapUnavailable("summarize conversations", err)
	}

	convs := make([]models.Conversation, 0, len(rows))
	for _, row := range rows {
		c := models.Conversation{
			RequesterID:  row.ID,
			LastBody:     row.Last.Body,
			LastAuthor:   row.Last.AuthorName,
			LastActiveAt: row.Last.CreatedAt,
			UnreadCount:  row.UnreadCount,
		}
		if len(row.RequesterDoc) > 0 {
			c.RequesterName = row.RequesterDoc[0].DisplayName
		}
		convs = append(convs, c)
	}
	return convs, nil
}

// GetUser retrieves a user by ID.
func (s *MongoStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapUnavailable("get user", err)
	}
	return &u, nil
}

// GetUserByToken resolves an opaque session token to a user.
func (s *MongoStore) GetUserByToken(ctx context.Context, token string) (*models.User, error) {
	var u models.User
	err := s.users.FindOne(ctx, bson.M{"token": token}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapUnavailable("get user by token", err)
	}
	return &u, nil
}
