package repository

import (
	"context"
	"fmt"
	"furnishop/entity"
	"furnishop/internal/chat"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDB implements chat.Backend: one document per session in
// chat-sessions, one document per message in chat-session-messages keyed by
// session_id.
var _ chat.Backend = (*MongoDB)(nil)

func (m *MongoDB) CreateSession(ctx context.Context, session *entity.ChatSession) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(chatSessionsCollection)
	_, err = collection.InsertOne(ctx, session)
	if err != nil {
		return fmt.Errorf("mongodb insert chat session: %w", err)
	}
	return nil
}

func (m *MongoDB) FindSession(ctx context.Context, id string) (*entity.ChatSession, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(chatSessionsCollection)

	var session entity.ChatSession
	err = collection.FindOne(ctx, bson.D{{"_id", id}}).Decode(&session)
	if err != nil {
		if err = m.findError(err); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return &session, nil
}

func (m *MongoDB) FindSessions(ctx context.Context, filter chat.SessionFilter) ([]entity.ChatSession, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(chatSessionsCollection)

	query, opts := sessionsQuery(filter)
	cursor, err := collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb find chat sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []entity.ChatSession
	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("mongodb decode chat sessions: %w", err)
	}
	return sessions, nil
}

// UpdateSessionStatus matches on the expected status so a concurrent
// transition is reported as chat.ErrStatusConflict instead of being overwritten.
func (m *MongoDB) UpdateSessionStatus(ctx context.Context, id string, from entity.ChatStatus, upd chat.StatusUpdate) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(chatSessionsCollection)

	filter, update := statusUpdateDocs(id, from, upd)
	res, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("mongodb update chat session status: %w", err)
	}
	if res.MatchedCount == 0 {
		count, err := collection.CountDocuments(ctx, bson.D{{"_id", id}})
		if err != nil {
			return fmt.Errorf("mongodb count chat session: %w", err)
		}
		return statusMissError(count)
	}
	return nil
}

func sessionsQuery(filter chat.SessionFilter) (bson.D, *options.FindOptions) {
	query := bson.D{}
	if filter.CustomerID != "" {
		query = append(query, bson.E{Key: "customer_id", Value: filter.CustomerID})
	}
	if filter.DealerID != "" {
		query = append(query, bson.E{Key: "dealer_id", Value: filter.DealerID})
	}
	if filter.ProductID != "" {
		query = append(query, bson.E{Key: "product_id", Value: filter.ProductID})
	}
	if filter.Status != "" {
		query = append(query, bson.E{Key: "status", Value: filter.Status})
	}

	order := -1
	if filter.Ascending {
		order = 1
	}
	return query, options.Find().SetSort(bson.D{{"created_at", order}})
}

// statusUpdateDocs builds the compare-and-set pair: the filter only matches
// while the session is still in status from.
func statusUpdateDocs(id string, from entity.ChatStatus, upd chat.StatusUpdate) (bson.D, bson.D) {
	set := bson.D{
		{"status", upd.Status},
		{"updated_at", upd.UpdatedAt},
	}
	if upd.DealerID != "" {
		set = append(set, bson.E{Key: "dealer_id", Value: upd.DealerID})
	}
	if upd.ClosedAt != nil {
		set = append(set, bson.E{Key: "closed_at", Value: *upd.ClosedAt})
	}
	return bson.D{{"_id", id}, {"status", from}}, bson.D{{"$set", set}}
}

// statusMissError tells apart a missing session from a lost race once the
// compare-and-set matched nothing.
func statusMissError(count int64) error {
	if count == 0 {
		return chat.ErrSessionNotFound
	}
	return chat.ErrStatusConflict
}

func (m *MongoDB) TouchSession(ctx context.Context, id string, at time.Time) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(chatSessionsCollection)
	res, err := collection.UpdateOne(ctx, bson.D{{"_id", id}}, bson.D{{"$set", bson.D{{"updated_at", at}}}})
	if err != nil {
		return fmt.Errorf("mongodb touch chat session: %w", err)
	}
	if res.MatchedCount == 0 {
		return chat.ErrSessionNotFound
	}
	return nil
}

func (m *MongoDB) InsertMessage(ctx context.Context, msg *entity.ChatMessage) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(chatMessagesCollection)
	_, err = collection.InsertOne(ctx, msg)
	if err != nil {
		return fmt.Errorf("mongodb insert chat message: %w", err)
	}
	return nil
}

func (m *MongoDB) FindMessages(ctx context.Context, sessionID string) ([]entity.ChatMessage, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(chatMessagesCollection)

	opts := options.Find().SetSort(bson.D{{"timestamp", 1}})
	cursor, err := collection.Find(ctx, bson.D{{"session_id", sessionID}}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb find chat messages: %w", err)
	}
	defer cursor.Close(ctx)

	var messages []entity.ChatMessage
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("mongodb decode chat messages: %w", err)
	}
	return messages, nil
}

// EnsureChatIndexes creates the indexes used by the list and message queries.
func (m *MongoDB) EnsureChatIndexes() error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	db := connection.Database(m.database)

	sessionIndexes := []mongo.IndexModel{
		{Keys: bson.D{{"customer_id", 1}, {"created_at", -1}}},
		{Keys: bson.D{{"dealer_id", 1}, {"created_at", -1}}},
		{Keys: bson.D{{"product_id", 1}, {"created_at", -1}}},
		{Keys: bson.D{{"status", 1}, {"created_at", 1}}},
	}
	if _, err = db.Collection(chatSessionsCollection).Indexes().CreateMany(m.ctx, sessionIndexes); err != nil {
		return fmt.Errorf("mongodb create chat session indexes: %w", err)
	}

	messageIndex := mongo.IndexModel{
		Keys: bson.D{{"session_id", 1}, {"timestamp", 1}},
	}
	if _, err = db.Collection(chatMessagesCollection).Indexes().CreateOne(m.ctx, messageIndex); err != nil {
		return fmt.Errorf("mongodb create chat message index: %w", err)
	}
	return nil
}
