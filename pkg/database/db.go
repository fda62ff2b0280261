package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"
)

var (
	ErrNotFound     = errors.New("document not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrMalformedID  = errors.New("malformed identifier")
)

// Collection is one logical set of documents. Documents are structs carrying
// bson tags; the same tags decide the persisted shape on every backend.
type Collection interface {
	Name() string
	Insert(ctx context.Context, id primitive.ObjectID, doc any) error
	// FindAll decodes every document into out, which must point to a slice.
	// Order is whatever the backend returns.
	FindAll(ctx context.Context, out any) error
	FindByID(ctx context.Context, id primitive.ObjectID, out any) error
	FindOne(ctx context.Context, field string, value any, out any) error
	Replace(ctx context.Context, id primitive.ObjectID, doc any) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	EnsureUniqueIndex(ctx context.Context, field string) error
}

type Store interface {
	Collection(name string) Collection
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type Config struct {
	Driver         string
	MongoURI       string
	MongoDatabase  string
	SQLitePath     string
	ConnectTimeout time.Duration
}

func DefaultConfig() Config {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return Config{
		Driver:         DriverMongo,
		MongoURI:       "mongodb://localhost:27017",
		MongoDatabase:  "bookreviews",
		SQLitePath:     filepath.Join(home, ".bookreviews", "data.db"),
		ConnectTimeout: 10 * time.Second,
	}
}

func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case DriverMongo, "":
		return OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.ConnectTimeout)
	case DriverSQLite:
		return OpenSQLite(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// MustOpen terminates the process when the store cannot be reached.
func MustOpen(ctx context.Context, cfg Config, log logrus.FieldLogger) Store {
	s, err := Open(ctx, cfg)
	if err != nil {
		log.WithError(err).WithField("driver", cfg.Driver).Fatal("failed to open document store")
	}
	return s
}

func ParseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w %q: %v", ErrMalformedID, id, err)
	}
	return oid, nil
}
