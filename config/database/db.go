package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"medirecords/pkg/logger"
	"medirecords/store"
)

// retryDelay separates Postgres ping attempts.
var retryDelay = 2 * time.Second

// Mongo dials MongoDB and verifies the server answers before returning.
func Mongo(uri, database string) store.Dialer {
	return func(ctx context.Context) (store.Backend, error) {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
		if err != nil {
			return nil, fmt.Errorf("open mongo connection: %w", err)
		}
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("ping mongo: %w", err)
		}
		logger.Sugar.Infof("Successfully connected to MongoDB database %q", database)
		return store.NewMongoBackend(client, database), nil
	}
}

// Postgres opens a JSONB-backed store and creates the named collections.
func Postgres(dsn string, attempts int, collections ...string) store.Dialer {
	return func(ctx context.Context) (store.Backend, error) {
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres connection: %w", err)
		}
		if err := pingWithRetry(ctx, db, attempts); err != nil {
			db.Close()
			return nil, err
		}
		logger.Sugar.Info("Successfully connected to the database")

		backend := store.NewPostgresBackend(db)
		if err := backend.EnsureCollections(ctx, collections...); err != nil {
			db.Close()
			return nil, err
		}
		return backend, nil
	}
}

func pingWithRetry(ctx context.Context, db *sql.DB, attempts int) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		if i < attempts-1 {
			logger.Sugar.Infof("Database connection failed, retrying in %s... (%v)", retryDelay, err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryDelay):
			}
		}
	}
	return fmt.Errorf("ping postgres after %d attempt(s): %w", attempts, err)
}
