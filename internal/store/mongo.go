package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/sweeney/thermo-relay/internal/logic"
)

// document is the persisted layout of one reading.
type document struct {
	ID         string    `bson:"_id"`
	Celsius    float64   `bson:"celsius"`
	Fahrenheit float64   `bson:"fahrenheit"`
	RecordedAt time.Time `bson:"recorded_at"`
}

func (d document) record() Record {
	return Record{
		ID:         d.ID,
		Celsius:    d.Celsius,
		Fahrenheit: d.Fahrenheit,
		RecordedAt: d.RecordedAt.UTC(),
	}
}

// MongoStore keeps readings in a MongoDB collection.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoConnection connects to uri and pings the primary.
func NewMongoConnection(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetTimeout(10 * time.Second))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}
	return client, nil
}

// NewMongoStore uses the readings collection of database and ensures the
// recorded_at index used by Latest exists.
func NewMongoStore(ctx context.Context, client *mongo.Client, database string) (*MongoStore, error) {
	collection := client.Database(database).Collection(Collection)

	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "recorded_at", Value: -1}},
	})
	if err != nil {
		return nil, fmt.Errorf("create recorded_at index: %w", err)
	}

	return &MongoStore{client: client, collection: collection}, nil
}

// Insert writes r, then reads the document back by id so the caller sees
// the values as the database holds them.
func (m *MongoStore) Insert(ctx context.Context, r logic.Reading) (Record, error) {
	doc := document{
		ID:         uuid.NewString(),
		Celsius:    r.Celsius,
		Fahrenheit: r.Fahrenheit,
		RecordedAt: time.Now().UTC(),
	}

	if _, err := m.collection.InsertOne(ctx, doc); err != nil {
		return Record{}, fmt.Errorf("insert reading: %w", err)
	}

	var stored document
	if err := m.collection.FindOne(ctx, bson.D{{Key: "_id", Value: doc.ID}}).Decode(&stored); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Record{}, fmt.Errorf("read back %s: no data returned", doc.ID)
		}
		return Record{}, fmt.Errorf("read back %s: %w", doc.ID, err)
	}
	return stored.record(), nil
}

// Latest returns the newest document by recorded_at.
func (m *MongoStore) Latest(ctx context.Context) (Record, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "recorded_at", Value: -1}})

	var doc document
	if err := m.collection.FindOne(ctx, bson.D{}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("latest reading: %w", err)
	}
	return doc.record(), nil
}

// Close disconnects the client.
func (m *MongoStore) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
