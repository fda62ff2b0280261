// Package users exposes user accounts. Passwords are hashed on the way in and
// never serialized on the way out.
package users

import (
	"github.com/sirupsen/logrus"

	"bookreviews/internal/resource"
	"bookreviews/internal/validate"
	"bookreviews/pkg/models"
)

var (
	CreateRules = validate.MustCompile(validate.Rules{
		"username": "required|string",
		"email":    "required|string",
		"password": "required|string",
	})
	UpdateRules = validate.MustCompile(validate.Rules{
		"username": "required|string",
		"email":    "required|string",
	})
)

func NewResource(repo resource.Repository[models.User]) *resource.Resource[models.User] {
	res := resource.New[models.User]("User", repo, CreateRules)
	res.UpdateRules = UpdateRules
	return res
}

func NewHandler(repo resource.Repository[models.User], log logrus.FieldLogger) *resource.Handler[models.User] {
	return resource.NewHandler(NewResource(repo), log)
}
