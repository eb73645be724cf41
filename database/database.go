package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mongodb"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/irsalhamdi/e-commerce-store/config"
)

//go:embed migrations/*.json
var migrations embed.FS

func Open(ctx context.Context, cfg config.DB) (*mongo.Database, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	return client.Database(cfg.Name), nil
}

func Close(ctx context.Context, db *mongo.Database) error {
	return db.Client().Disconnect(ctx)
}

// Migrate applies every pending migration. Migrations are JSON arrays of
// database commands run in order against db.
func Migrate(db *mongo.Database) error {
	driver, err := mongodb.WithInstance(db.Client(), &mongodb.Config{
		DatabaseName: db.Name(),
	})
	if err != nil {
		return fmt.Errorf("building migration driver: %w", err)
	}

	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("reading migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "mongodb", driver)
	if err != nil {
		return fmt.Errorf("building migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}

	return nil
}
