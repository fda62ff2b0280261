// Package audit finds reviews whose owner no longer exists. Ownership is not
// enforced on write, so this is the only place dangling references surface.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"bookreviews/pkg/models"
)

type BookLister interface {
	List(ctx context.Context) ([]models.Book, error)
}

type UserLister interface {
	List(ctx context.Context) ([]models.User, error)
}

type Orphan struct {
	BookID primitive.ObjectID
	UserID primitive.ObjectID
	Title  string
}

type Auditor struct {
	Books   BookLister
	Users   UserLister
	Log     logrus.FieldLogger
	Timeout time.Duration
}

func New(books BookLister, users UserLister, log logrus.FieldLogger) *Auditor {
	return &Auditor{Books: books, Users: users, Log: log, Timeout: time.Minute}
}

// Orphans returns every book whose userId matches no user.
func (a *Auditor) Orphans(ctx context.Context) ([]Orphan, error) {
	users, err := a.Users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("audit users: %w", err)
	}
	known := make(map[primitive.ObjectID]struct{}, len(users))
	for _, u := range users {
		known[u.ID] = struct{}{}
	}

	books, err := a.Books.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("audit books: %w", err)
	}

	var out []Orphan
	for _, b := range books {
		if _, ok := known[b.UserID]; !ok {
			out = append(out, Orphan{BookID: b.ID, UserID: b.UserID, Title: b.Title})
		}
	}
	return out, nil
}

// Run performs one audit and logs each orphan.
func (a *Auditor) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), a.Timeout)
	defer cancel()

	orphans, err := a.Orphans(ctx)
	if err != nil {
		a.Log.WithError(err).Error("orphan audit failed")
		return
	}
	for _, o := range orphans {
		a.Log.WithFields(logrus.Fields{
			"book_id": o.BookID.Hex(),
			"user_id": o.UserID.Hex(),
			"title":   o.Title,
		}).Warn("book review references missing user")
	}
	a.Log.WithField("orphans", len(orphans)).Info("orphan audit finished")
}

// Schedule registers Run on a cron spec and starts the scheduler. Stop the
// returned cron to end it.
func (a *Auditor) Schedule(spec string) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, a.Run); err != nil {
		return nil, fmt.Errorf("schedule audit %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}
