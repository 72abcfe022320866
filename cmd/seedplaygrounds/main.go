// Command seedplaygrounds replaces the playgrounds collection with the fixed
// set of ten Chennai playgrounds and recounts their open issues.
//
// It reads PLAYSAFE_MONGO_URI and PLAYSAFE_MONGO_DATABASE from the
// environment or a .env file.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dalemusser/playsafe/internal/app/system/seed"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(logger); err != nil {
		logger.Error("seeding playgrounds failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *zap.Logger) error {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	uri := envOr("PLAYSAFE_MONGO_URI", "mongodb://localhost:27017")
	dbName := envOr("PLAYSAFE_MONGO_DATABASE", "playsafe")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return fmt.Errorf("mongo connect: %w", err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongo ping: %w", err)
	}

	n, err := seed.Run(ctx, client.Database(dbName), logger)
	if err != nil {
		return err
	}
	logger.Info("seeded Chennai playgrounds", zap.Int("count", n), zap.String("database", dbName))
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
