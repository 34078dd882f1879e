package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/repository"
)

const (
	blobCollection     = "ledger_blobs"
	snapshotCollection = "summary_snapshots"
)

// blobDocument holds one serialized ledger collection.
type blobDocument struct {
	Key       string    `bson:"_id"`
	Data      string    `bson:"data"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoDBRepository stores ledger blobs and archived summaries in MongoDB.
type MongoDBRepository struct {
	client *mongo.Client
	dbName string
	logger *zap.Logger
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string, logger *zap.Logger) (*MongoDBRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{
		client: client,
		dbName: dbName,
		logger: logger,
	}, nil
}

func (r *MongoDBRepository) collection(name string) *mongo.Collection {
	return r.client.Database(r.dbName).Collection(name)
}

// Read fetches the blob stored under key.
func (r *MongoDBRepository) Read(ctx context.Context, key string) ([]byte, error) {
	var doc blobDocument
	err := r.collection(blobCollection).FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read blob %s: %w", key, err)
	}
	return []byte(doc.Data), nil
}

// Write upserts the blob stored under key.
func (r *MongoDBRepository) Write(ctx context.Context, key string, data []byte) error {
	doc := blobDocument{Key: key, Data: string(data), UpdatedAt: time.Now().UTC()}
	_, err := r.collection(blobCollection).ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to write blob %s: %w", key, err)
	}
	r.logger.Debug("blob upserted", zap.String("key", key))
	return nil
}

// SaveSummarySnapshot archives the farmer summary.
func (r *MongoDBRepository) SaveSummarySnapshot(ctx context.Context, snapshot models.SummarySnapshot) error {
	_, err := r.collection(snapshotCollection).InsertOne(ctx, snapshot)
	if err != nil {
		return fmt.Errorf("failed to insert summary snapshot: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
