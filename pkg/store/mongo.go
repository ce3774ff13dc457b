package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/samba-xyz/samba-relay/pkg/models"
)

const (
	intentsCollection = "intents"
	usersCollection   = "user"

	connectTimeout = 10 * time.Second
)

// MongoStore implements Store on MongoDB. Intents are replaced, not inserted,
// so an email can never accumulate more than one record.
type MongoStore struct {
	client  *mongo.Client
	intents *mongo.Collection
	users   *mongo.Collection
}

// NewMongoStore connects to MongoDB and verifies the connection.
func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(dbName)
	return &MongoStore{
		client:  client,
		intents: db.Collection(intentsCollection),
		users:   db.Collection(usersCollection),
	}, nil
}

func (s *MongoStore) GetIntent(ctx context.Context, email string) (*models.IntentRecord, error) {
	var record models.IntentRecord
	err := s.intents.FindOne(ctx, bson.M{"email": email}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load intent record: %w", err)
	}
	return &record, nil
}

func (s *MongoStore) UpsertIntent(ctx context.Context, record *models.IntentRecord) error {
	opts := options.Replace().SetUpsert(true)
	_, err := s.intents.ReplaceOne(ctx, bson.M{"email": record.Email}, record, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert intent record: %w", err)
	}
	return nil
}

func (s *MongoStore) DeleteIntent(ctx context.Context, email string) error {
	_, err := s.intents.DeleteOne(ctx, bson.M{"email": email})
	if err != nil {
		return fmt.Errorf("failed to delete intent record: %w", err)
	}
	return nil
}

func (s *MongoStore) GetWrapperContract(ctx context.Context, email string) (string, error) {
	var record models.UserRecord
	err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load user record: %w", err)
	}
	if record.WrapperContract == "" {
		return "", ErrNotFound
	}
	return record.WrapperContract, nil
}

func (s *MongoStore) SetWrapperContract(ctx context.Context, email, address string) error {
	update := bson.M{
		"$set":         bson.M{"wrapper_contract": address},
		"$setOnInsert": bson.M{"created_at": time.Now().UTC()},
	}
	opts := options.Update().SetUpsert(true)
	_, err := s.users.UpdateOne(ctx, bson.M{"email": email}, update, opts)
	if err != nil {
		return fmt.Errorf("failed to store wrapper contract: %w", err)
	}
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
