// Package resource holds the validated CRUD orchestration shared by every
// entity the API exposes: validate, persist, and map the outcome to one of
// four error kinds.
package resource

import (
	"context"
	"errors"
	"strings"

	"bookreviews/internal/validate"
	"bookreviews/pkg/database"
	"bookreviews/pkg/models"
)

// Repository is the persistence boundary for one collection.
//
// Get returns (nil, nil) when no document has the id and an error when the
// id is malformed or the store fails. Create and Update return a
// *models.SchemaError when the document itself is rejected.
type Repository[T any] interface {
	List(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id string) (*T, error)
	Create(ctx context.Context, p validate.Payload) (string, error)
	Update(ctx context.Context, current *T, p validate.Payload) error
	Delete(ctx context.Context, id string) error
}

type Resource[T any] struct {
	// Name is the display name used in messages, e.g. "Book".
	Name  string
	Repo  Repository[T]
	Rules *validate.RuleSet
	// UpdateRules applies to updates; nil falls back to Rules.
	UpdateRules *validate.RuleSet
}

func New[T any](name string, repo Repository[T], rules *validate.RuleSet) *Resource[T] {
	return &Resource[T]{Name: name, Repo: repo, Rules: rules}
}

func (r *Resource[T]) List(ctx context.Context) ([]T, error) {
	items, err := r.Repo.List(ctx)
	if err != nil {
		return nil, r.serverError(err)
	}
	return items, nil
}

// Get fails with ServerError for a malformed id: the store rejects it before
// any lookup happens, so it is never reported as NotFound.
func (r *Resource[T]) Get(ctx context.Context, id string) (*T, error) {
	item, err := r.Repo.Get(ctx, id)
	if err != nil {
		return nil, r.serverError(err)
	}
	if item == nil {
		return nil, r.notFound()
	}
	return item, nil
}

func (r *Resource[T]) Create(ctx context.Context, p validate.Payload) (string, error) {
	if res := r.Rules.Validate(p); !res.Valid {
		return "", validationFailed(res)
	}

	id, err := r.Repo.Create(ctx, p)
	if err != nil {
		return "", r.rejected(err)
	}
	return id, nil
}

// Update looks the document up first so a missing id is a NotFound even when
// the payload is also invalid.
func (r *Resource[T]) Update(ctx context.Context, id string, p validate.Payload) error {
	current, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	rules := r.UpdateRules
	if rules == nil {
		rules = r.Rules
	}
	if res := rules.Validate(p); !res.Valid {
		return validationFailed(res)
	}

	if err := r.Repo.Update(ctx, current, p); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return r.notFound()
		}
		return r.rejected(err)
	}
	return nil
}

func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}

	if err := r.Repo.Delete(ctx, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return r.notFound()
		}
		return r.serverError(err)
	}
	return nil
}

func validationFailed(res validate.Result) *Error {
	return &Error{Kind: KindValidationFailed, Message: "Validation failed", Fields: res.Errors}
}

func (r *Resource[T]) notFound() *Error {
	return &Error{Kind: KindNotFound, Message: r.Name + " not found."}
}

func (r *Resource[T]) serverError(err error) *Error {
	return &Error{Kind: KindServerError, Message: "internal server error", Err: err}
}

// rejected maps a failed write to BadRequest. Only schema problems reach the
// client verbatim; anything else gets a generic message.
func (r *Resource[T]) rejected(err error) *Error {
	var se *models.SchemaError
	if errors.As(err, &se) {
		return &Error{Kind: KindBadRequest, Message: se.Error(), Err: err}
	}
	return &Error{Kind: KindBadRequest, Message: "could not save " + strings.ToLower(r.Name), Err: err}
}
