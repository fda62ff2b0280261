// Package books exposes book reviews: each review belongs to one user and
// carries a 1 to 5 rating.
package books

import (
	"github.com/sirupsen/logrus"

	"bookreviews/internal/resource"
	"bookreviews/internal/validate"
	"bookreviews/pkg/models"
)

// Rules apply to both create and update. Genre and userId are left to the
// document schema.
var Rules = validate.MustCompile(validate.Rules{
	"title":  "required|string",
	"author": "required|string",
	"rating": "required|integer|min:1|max:5",
	"review": "string",
})

func NewResource(repo resource.Repository[models.Book]) *resource.Resource[models.Book] {
	return resource.New[models.Book]("Book", repo, Rules)
}

func NewHandler(repo resource.Repository[models.Book], log logrus.FieldLogger) *resource.Handler[models.Book] {
	h := resource.NewHandler(NewResource(repo), log)
	h.DeletedMessage = "Book Review deleted successfully!"
	return h
}
