package models

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var schema = newSchemaValidator()

func newSchemaValidator() *validator.Validate {
	v := validator.New()
	// report fields by their wire names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			name = strings.SplitN(f.Tag.Get("bson"), ",", 2)[0]
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// SchemaError is a document rejected before (or by) the store: a missing
// required field, an out-of-range value or a unique-key clash. Its message is
// safe to return to API clients.
type SchemaError struct {
	Entity string
	Fields map[string]string
}

func (e *SchemaError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return fmt.Sprintf("%s validation failed: %s", e.Entity, strings.Join(parts, "; "))
}

// Reject builds a SchemaError for a single field.
func Reject(entity, field, problem string) *SchemaError {
	return &SchemaError{Entity: entity, Fields: map[string]string{field: problem}}
}

// CheckSchema runs the struct's validate tags and returns a *SchemaError when
// any constraint fails.
func CheckSchema(entity string, doc any) error {
	err := schema.Struct(doc)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("check %s schema: %w", entity, err)
	}

	se := &SchemaError{Entity: entity, Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		se.Fields[fe.Field()] = describe(fe)
	}
	return se
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}
