package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bookreviews/internal/resource"
	"bookreviews/pkg/models"
)

// Route is one entry of the route table. Auth routes run behind the gate.
type Route struct {
	Method  string
	Path    string
	Auth    bool
	Handler gin.HandlerFunc
}

// Routes lists the collection endpoints. Book writes need a signed-in user;
// book reads and every user endpoint are open.
func Routes(books *resource.Handler[models.Book], users *resource.Handler[models.User]) []Route {
	return []Route{
		{Method: http.MethodGet, Path: "/books", Handler: books.List},
		{Method: http.MethodGet, Path: "/books/:id", Handler: books.Get},
		{Method: http.MethodPost, Path: "/books", Auth: true, Handler: books.Create},
		{Method: http.MethodPut, Path: "/books/:id", Auth: true, Handler: books.Update},
		{Method: http.MethodDelete, Path: "/books/:id", Auth: true, Handler: books.Delete},

		{Method: http.MethodGet, Path: "/users", Handler: users.List},
		{Method: http.MethodGet, Path: "/users/:id", Handler: users.Get},
		{Method: http.MethodPost, Path: "/users", Handler: users.Create},
		{Method: http.MethodPut, Path: "/users/:id", Handler: users.Update},
		{Method: http.MethodDelete, Path: "/users/:id", Handler: users.Delete},
	}
}

// Register mounts routes on r. A nil gate leaves every route open.
func Register(r gin.IRoutes, routes []Route, gate gin.HandlerFunc) {
	for _, rt := range routes {
		if rt.Auth && gate != nil {
			r.Handle(rt.Method, rt.Path, gate, rt.Handler)
			continue
		}
		r.Handle(rt.Method, rt.Path, rt.Handler)
	}
}
