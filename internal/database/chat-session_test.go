package repository

import (
	"errors"
	"furnishop/entity"
	"furnishop/internal/chat"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestStatusUpdateDocs(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		from   entity.ChatStatus
		upd    chat.StatusUpdate
		update bson.D
	}{
		{
			name: "assign dealer",
			from: entity.StatusWaiting,
			upd:  chat.StatusUpdate{Status: entity.StatusActive, DealerID: "d1", UpdatedAt: now},
			update: bson.D{{"$set", bson.D{
				{"status", entity.StatusActive},
				{"updated_at", now},
				{"dealer_id", "d1"},
			}}},
		},
		{
			name: "close keeps dealer",
			from: entity.StatusActive,
			upd:  chat.StatusUpdate{Status: entity.StatusCompleted, UpdatedAt: now, ClosedAt: &now},
			update: bson.D{{"$set", bson.D{
				{"status", entity.StatusCompleted},
				{"updated_at", now},
				{"closed_at", now},
			}}},
		},
		{
			name: "status only",
			from: entity.StatusWaiting,
			upd:  chat.StatusUpdate{Status: entity.StatusCancelled, UpdatedAt: now},
			update: bson.D{{"$set", bson.D{
				{"status", entity.StatusCancelled},
				{"updated_at", now},
			}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, update := statusUpdateDocs("s1", tt.from, tt.upd)
			assert.Equal(t, bson.D{{"_id", "s1"}, {"status", tt.from}}, filter)
			assert.Equal(t, tt.update, update)
		})
	}
}

func TestStatusMissError(t *testing.T) {
	assert.ErrorIs(t, statusMissError(0), chat.ErrSessionNotFound)
	assert.ErrorIs(t, statusMissError(1), chat.ErrStatusConflict)
}

func TestSessionsQuery(t *testing.T) {
	query, opts := sessionsQuery(chat.SessionFilter{})
	assert.Empty(t, query)
	assert.Equal(t, bson.D{{"created_at", -1}}, opts.Sort)

	query, opts = sessionsQuery(chat.SessionFilter{
		DealerID:  "d1",
		Status:    entity.StatusWaiting,
		Ascending: true,
	})
	assert.Equal(t, bson.D{{"dealer_id", "d1"}, {"status", entity.StatusWaiting}}, query)
	assert.Equal(t, bson.D{{"created_at", 1}}, opts.Sort)
}

func TestFindError(t *testing.T) {
	m := &MongoDB{}
	assert.NoError(t, m.findError(mongo.ErrNoDocuments))

	outage := errors.New("server selection timeout")
	assert.ErrorIs(t, m.findError(outage), outage)
}
