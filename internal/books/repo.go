package books

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"bookreviews/internal/validate"
	"bookreviews/pkg/database"
	"bookreviews/pkg/models"
)

const Collection = "books"

type Repo struct {
	Coll database.Collection
}

func NewRepo(store database.Store) *Repo {
	return &Repo{Coll: store.Collection(Collection)}
}

// EnsureIndexes creates the unique index on userId when uniqueUserID is set.
// Existing indexes are never dropped.
func (r *Repo) EnsureIndexes(ctx context.Context, uniqueUserID bool) error {
	if !uniqueUserID {
		return nil
	}
	if err := r.Coll.EnsureUniqueIndex(ctx, "userId"); err != nil {
		return fmt.Errorf("ensure books indexes: %w", err)
	}
	return nil
}

func (r *Repo) List(ctx context.Context) ([]models.Book, error) {
	out := make([]models.Book, 0)
	if err := r.Coll.FindAll(ctx, &out); err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return out, nil
}

func (r *Repo) Get(ctx context.Context, id string) (*models.Book, error) {
	oid, err := database.ParseID(id)
	if err != nil {
		return nil, err
	}

	var b models.Book
	if err := r.Coll.FindByID(ctx, oid, &b); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	return &b, nil
}

// Create stores a new review. Genre and userId are only checked by the
// document schema, so their absence surfaces as a *models.SchemaError.
func (r *Repo) Create(ctx context.Context, p validate.Payload) (string, error) {
	b := models.Book{
		ID:     primitive.NewObjectID(),
		Title:  p.String("title"),
		Author: p.String("author"),
		Rating: p.Int("rating"),
		Review: p.String("review"),
		Genre:  p.String("genre"),
	}

	owner := p.String("userId")
	if owner == "" {
		return "", models.Reject("Book", "userId", "is required")
	}
	uid, err := primitive.ObjectIDFromHex(owner)
	if err != nil {
		return "", models.Reject("Book", "userId", "must be a valid id")
	}
	b.UserID = uid

	if err := models.CheckSchema("Book", &b); err != nil {
		return "", err
	}

	if err := r.Coll.Insert(ctx, b.ID, &b); err != nil {
		if errors.Is(err, database.ErrDuplicateKey) {
			return "", models.Reject("Book", "userId", "already has a review")
		}
		return "", fmt.Errorf("insert book: %w", err)
	}
	return b.ID.Hex(), nil
}

// Update overwrites title, author, rating and review. Genre and owner keep
// their stored values.
func (r *Repo) Update(ctx context.Context, current *models.Book, p validate.Payload) error {
	next := *current
	next.Apply(models.BookUpdate{
		Title:  p.String("title"),
		Author: p.String("author"),
		Rating: p.Int("rating"),
		Review: p.String("review"),
	})

	if err := models.CheckSchema("Book", &next); err != nil {
		return err
	}

	if err := r.Coll.Replace(ctx, next.ID, &next); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return database.ErrNotFound
		}
		if errors.Is(err, database.ErrDuplicateKey) {
			return models.Reject("Book", "userId", "already has a review")
		}
		return fmt.Errorf("update book: %w", err)
	}
	*current = next
	return nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	oid, err := database.ParseID(id)
	if err != nil {
		return err
	}
	if err := r.Coll.Delete(ctx, oid); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return database.ErrNotFound
		}
		return fmt.Errorf("delete book: %w", err)
	}
	return nil
}

