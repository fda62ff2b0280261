package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"bookreviews/internal/validate"
	"bookreviews/pkg/database"
	"bookreviews/pkg/models"
)

const Collection = "users"

// Hasher turns a plaintext password into the form that gets stored.
type Hasher interface {
	Hash(password string) (string, error)
}

type Repo struct {
	Coll   database.Collection
	Hasher Hasher
}

func NewRepo(store database.Store, hasher Hasher) *Repo {
	return &Repo{Coll: store.Collection(Collection), Hasher: hasher}
}

// EnsureIndexes makes email unique; login looks users up by it.
func (r *Repo) EnsureIndexes(ctx context.Context) error {
	if err := r.Coll.EnsureUniqueIndex(ctx, "email"); err != nil {
		return fmt.Errorf("ensure users indexes: %w", err)
	}
	return nil
}

func (r *Repo) List(ctx context.Context) ([]models.User, error) {
	out := make([]models.User, 0)
	if err := r.Coll.FindAll(ctx, &out); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out, nil
}

func (r *Repo) Get(ctx context.Context, id string) (*models.User, error) {
	oid, err := database.ParseID(id)
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, oid)
}

func (r *Repo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := r.Coll.FindByID(ctx, id, &u); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (r *Repo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := r.Coll.FindOne(ctx, "email", strings.TrimSpace(email), &u); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &u, nil
}

func (r *Repo) Create(ctx context.Context, p validate.Payload) (string, error) {
	u := models.User{
		ID:       primitive.NewObjectID(),
		Username: p.String("username"),
		Email:    strings.TrimSpace(p.String("email")),
	}

	password := p.String("password")
	if password == "" {
		return "", models.Reject("User", "password", "is required")
	}
	hash, err := r.Hasher.Hash(password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = hash

	if err := models.CheckSchema("User", &u); err != nil {
		return "", err
	}

	if err := r.Coll.Insert(ctx, u.ID, &u); err != nil {
		if errors.Is(err, database.ErrDuplicateKey) {
			return "", models.Reject("User", "email", "is already registered")
		}
		return "", fmt.Errorf("insert user: %w", err)
	}
	return u.ID.Hex(), nil
}

// Update overwrites username and email only. The stored hash is kept as is.
func (r *Repo) Update(ctx context.Context, current *models.User, p validate.Payload) error {
	next := *current
	next.Apply(models.UserUpdate{
		Username: p.String("username"),
		Email:    strings.TrimSpace(p.String("email")),
	})

	if err := models.CheckSchema("User", &next); err != nil {
		return err
	}

	if err := r.Coll.Replace(ctx, next.ID, &next); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return database.ErrNotFound
		}
		if errors.Is(err, database.ErrDuplicateKey) {
			return models.Reject("User", "email", "is already registered")
		}
		return fmt.Errorf("update user: %w", err)
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
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
