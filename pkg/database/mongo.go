package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoStore struct {
	Client *mongo.Client
	DB     *mongo.Database
}

func OpenMongo(ctx context.Context, uri, dbName string, timeout time.Duration) (*MongoStore, error) {
	if uri == "" {
		return nil, errors.New("open mongo: empty connection uri")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	opts := options.Client().ApplyURI(uri).SetConnectTimeout(timeout).SetServerSelectionTimeout(timeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &MongoStore{Client: client, DB: client.Database(dbName)}, nil
}

func (s *MongoStore) Collection(name string) Collection {
	return &mongoCollection{coll: s.DB.Collection(name)}
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx, nil)
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.Client.Disconnect(ctx)
}

type mongoCollection struct {
	coll *mongo.Collection
}

func (c *mongoCollection) Name() string { return c.coll.Name() }

func (c *mongoCollection) Insert(ctx context.Context, id primitive.ObjectID, doc any) error {
	if _, err := c.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("insert %s %s: %w", c.Name(), id.Hex(), ErrDuplicateKey)
		}
		return fmt.Errorf("insert %s %s: %w", c.Name(), id.Hex(), err)
	}
	return nil
}

func (c *mongoCollection) FindAll(ctx context.Context, out any) error {
	cur, err := c.coll.Find(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("find %s: %w", c.Name(), err)
	}
	defer cur.Close(ctx)

	if err := cur.All(ctx, out); err != nil {
		return fmt.Errorf("decode %s: %w", c.Name(), err)
	}
	return nil
}

func (c *mongoCollection) FindByID(ctx context.Context, id primitive.ObjectID, out any) error {
	return c.findOne(ctx, bson.M{"_id": id}, out)
}

func (c *mongoCollection) FindOne(ctx context.Context, field string, value any, out any) error {
	return c.findOne(ctx, bson.M{field: value}, out)
}

func (c *mongoCollection) findOne(ctx context.Context, filter bson.M, out any) error {
	err := c.coll.FindOne(ctx, filter).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("find one %s: %w", c.Name(), err)
	}
	return nil
}

func (c *mongoCollection) Replace(ctx context.Context, id primitive.ObjectID, doc any) error {
	res, err := c.coll.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("replace %s %s: %w", c.Name(), id.Hex(), ErrDuplicateKey)
		}
		return fmt.Errorf("replace %s %s: %w", c.Name(), id.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *mongoCollection) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := c.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", c.Name(), id.Hex(), err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *mongoCollection) EnsureUniqueIndex(ctx context.Context, field string) error {
	_, err := c.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: field, Value: 1}},
		Options: options.Index().SetUnique(true).SetName(field + "_unique"),
	})
	if err != nil {
		return fmt.Errorf("create unique index %s.%s: %w", c.Name(), field, err)
	}
	return nil
}
