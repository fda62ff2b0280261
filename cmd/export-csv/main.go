package main

import (
	"context"
	"encoding/csv"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"bookreviews/internal/auth"
	"bookreviews/internal/books"
	"bookreviews/internal/users"
	"bookreviews/pkg/database"
	"bookreviews/pkg/logger"
	"bookreviews/pkg/models"
	"bookreviews/pkg/utils"
)

func main() {
	var (
		configPath = flag.String("config", "", "optional YAML config file")
		booksOut   = flag.String("books", "data/books.csv", "output CSV path for book reviews")
		usersOut   = flag.String("users", "data/users.csv", "output CSV path for users")
	)
	flag.Parse()

	cfg, err := utils.LoadConfig(*configPath)
	if err != nil {
		logger.New("info", "text").WithError(err).Fatal("load config")
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store := database.MustOpen(ctx, cfg.Store.Database(), log)
	defer store.Close(context.Background())

	bookList, err := books.NewRepo(store).List(ctx)
	if err != nil {
		log.WithError(err).Fatal("list books")
	}
	userList, err := users.NewRepo(store, auth.BcryptHasher{}).List(ctx)
	if err != nil {
		log.WithError(err).Fatal("list users")
	}

	if err := writeFile(*booksOut, func(w io.Writer) error { return writeBooks(w, bookList) }); err != nil {
		log.WithError(err).Fatal("export books")
	}
	if err := writeFile(*usersOut, func(w io.Writer) error { return writeUsers(w, userList) }); err != nil {
		log.WithError(err).Fatal("export users")
	}

	log.WithFields(logrus.Fields{
		"books": len(bookList), "books_path": *booksOut,
		"users": len(userList), "users_path": *usersOut,
	}).Info("export finished")
}

func writeFile(path string, fn func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writeBooks(out io.Writer, items []models.Book) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"id", "title", "author", "rating", "review", "genre", "user_id"}); err != nil {
		return err
	}
	for _, b := range items {
		if err := w.Write([]string{
			b.ID.Hex(),
			b.Title,
			b.Author,
			strconv.Itoa(b.Rating),
			b.Review,
			b.Genre,
			b.UserID.Hex(),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// writeUsers leaves password hashes out of the export.
func writeUsers(out io.Writer, items []models.User) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"id", "username", "email"}); err != nil {
		return err
	}
	for _, u := range items {
		if err := w.Write([]string{u.ID.Hex(), u.Username, u.Email}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
