package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const connectTimeout = 10 * time.Second

// MongoHandle owns the Mongo client. The connection is opened on first use
// and shared afterwards; a failed attempt is not cached.
type MongoHandle struct {
	uri    string
	dbName string
	log    *zap.Logger

	mu     sync.Mutex
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoHandle(cfg *Config, log *zap.Logger) *MongoHandle {
	return &MongoHandle{uri: cfg.MongoURI, dbName: cfg.MongoDatabase, log: log}
}

// NewMongoHandleWithLifecycle tries to connect on start and disconnects on stop.
func NewMongoHandleWithLifecycle(lc fx.Lifecycle, cfg *Config, log *zap.Logger) *MongoHandle {
	h := NewMongoHandle(cfg, log)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if _, err := h.Database(ctx); err != nil {
				log.Warn("MongoDB unavailable on startup, retrying on first request", zap.Error(err))
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Closing MongoDB connection ...")
			return h.Disconnect(ctx)
		},
	})
	return h
}

// Database returns the connected database, connecting if needed.
func (h *MongoHandle) Database(ctx context.Context) (*mongo.Database, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.db != nil {
		return h.db, nil
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(h.uri))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	h.log.Info("Connected to MongoDB", zap.String("database", h.dbName))
	h.client = client
	h.db = client.Database(h.dbName)

	if err := EnsureIndexes(ctx, h.db); err != nil {
		h.log.Error("Failed to create indexes", zap.Error(err))
	}
	return h.db, nil
}

// Collection resolves a collection on the shared database.
func (h *MongoHandle) Collection(ctx context.Context, name string) (*mongo.Collection, error) {
	db, err := h.Database(ctx)
	if err != nil {
		return nil, err
	}
	return db.Collection(name), nil
}

func (h *MongoHandle) Disconnect(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.client == nil {
		return nil
	}
	err := h.client.Disconnect(ctx)
	h.client = nil
	h.db = nil
	return err
}

// EnsureIndexes creates the indexes the repositories rely on. Only admin
// emails are unique; user emails are checked at signup only.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	indexes := map[string][]mongo.IndexModel{
		"admins": {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "departmentName", Value: 1}}},
		},
		"users": {
			{Keys: bson.D{{Key: "email", Value: 1}}},
		},
		"notices": {
			{Keys: bson.D{{Key: "CreaterId", Value: 1}}},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "category", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "isImportant", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}

	for coll, models := range indexes {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}
