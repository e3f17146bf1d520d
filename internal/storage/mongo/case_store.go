// Package mongo persists case records as documents in a MongoDB collection.
package mongo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/JakeFAU/dhc-order-crawler/internal/crawler"
)

// Config captures the connection parameters for the case collection.
type Config struct {
	URI            string
	Database       string
	Collection     string
	ConnectTimeout time.Duration
}

type insertFunc func(ctx context.Context, document any) error

// CaseStore inserts one document per resolved case.
type CaseStore struct {
	insert     insertFunc
	disconnect func(context.Context) error
}

// NewCaseStore connects to MongoDB and verifies the server is reachable.
func NewCaseStore(ctx context.Context, cfg Config) (*CaseStore, error) {
	if strings.TrimSpace(cfg.URI) == "" {
		return nil, fmt.Errorf("store.mongo.uri is required")
	}
	if cfg.Database == "" || cfg.Collection == "" {
		return nil, fmt.Errorf("store.mongo.database and store.mongo.collection are required")
	}
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout)
	}
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	store := NewCaseStoreWithCollection(client.Database(cfg.Database).Collection(cfg.Collection))
	store.disconnect = client.Disconnect
	return store, nil
}

// NewCaseStoreWithCollection wraps an existing collection handle. Close does
// not disconnect the shared client.
func NewCaseStoreWithCollection(coll *mongo.Collection) *CaseStore {
	return &CaseStore{
		insert: func(ctx context.Context, document any) error {
			_, err := coll.InsertOne(ctx, document)
			return err
		},
	}
}

// Insert stores record as a single document.
func (s *CaseStore) Insert(ctx context.Context, record crawler.CaseRecord) error {
	if s == nil || s.insert == nil {
		return fmt.Errorf("case store is not configured")
	}
	if record.Orders == nil {
		record.Orders = []crawler.OrderRecord{}
	}
	if err := s.insert(ctx, record); err != nil {
		return fmt.Errorf("insert case %s: %w", record.CaseInfo, err)
	}
	return nil
}

// Close disconnects the client when the store owns it.
func (s *CaseStore) Close() error {
	if s == nil || s.disconnect == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect mongo: %w", err)
	}
	return nil
}
