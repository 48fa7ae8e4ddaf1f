package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/JacobArthurs/ecommerce-api/pkg/config"
)

// AuditEntry records one successful mutation.
type AuditEntry struct {
	ID        string    `bson:"_id,omitempty"`
	Service   string    `bson:"service"`
	Action    string    `bson:"action"`
	EntityID  string    `bson:"entity_id"`
	Data      bson.M    `bson:"data"`
	CreatedAt time.Time `bson:"created_at"`
}

// AuditLogger writes mutation audit entries to MongoDB. A nil
// *AuditLogger is valid and drops entries, so the service (and tests)
// run without mongo.
type AuditLogger struct {
	client     *mongo.Client
	collection *mongo.Collection
	service    string
	logger     *zap.Logger
}

func NewAuditLogger(cfg *config.MongoDBConfig, service string, logger *zap.Logger) (*AuditLogger, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}

	return &AuditLogger{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		service:    service,
		logger:     logger,
	}, nil
}

func (a *AuditLogger) Ping(ctx context.Context) error {
	if a == nil {
		return nil
	}
	return a.client.Ping(ctx, nil)
}

// Record writes the entry asynchronously; audit writes never block or
// fail the mutation that triggered them.
func (a *AuditLogger) Record(action, entityID string, data map[string]interface{}) {
	if a == nil {
		return
	}
	entry := &AuditEntry{
		Service:   a.service,
		Action:    action,
		EntityID:  entityID,
		Data:      bson.M(data),
		CreatedAt: time.Now(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := a.collection.InsertOne(ctx, entry); err != nil {
			a.logger.Warn("failed to write audit entry",
				zap.String("action", action),
				zap.Error(err))
		}
	}()
}

// Recent returns the latest audit entries for an entity, newest first.
func (a *AuditLogger) Recent(ctx context.Context, entityID string, limit int64) ([]*AuditEntry, error) {
	if a == nil {
		return nil, nil
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := a.collection.Find(ctx, bson.M{"entity_id": entityID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []*AuditEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (a *AuditLogger) Close(ctx context.Context) error {
	if a == nil {
		return nil
	}
	return a.client.Disconnect(ctx)
}
