package resource_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookreviews/internal/resource"
	synchub "bookreviews/internal/sync"
	"bookreviews/internal/validate"
	"bookreviews/pkg/database"
	"bookreviews/pkg/models"
)

type note struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// memRepo accepts any id; ids starting with "bad" are malformed.
type memRepo struct {
	mu      sync.Mutex
	seq     int
	items   map[string]*note
	failAll error
	failPut error
}

func newMemRepo() *memRepo { return &memRepo{items: map[string]*note{}} }

func (r *memRepo) List(context.Context) ([]note, error) {
	if r.failAll != nil {
		return nil, r.failAll
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]note, 0, len(r.items))
	for _, n := range r.items {
		out = append(out, *n)
	}
	return out, nil
}

func (r *memRepo) Get(_ context.Context, id string) (*note, error) {
	if strings.HasPrefix(id, "bad") {
		return nil, database.ErrMalformedID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	cp := *n
	return &cp, nil
}

func (r *memRepo) Create(_ context.Context, p validate.Payload) (string, error) {
	if p.String("text") == "dup" {
		return "", models.Reject("Note", "text", "must be unique")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	id := fmt.Sprintf("n%d", r.seq)
	r.items[id] = &note{ID: id, Text: p.String("text")}
	return id, nil
}

func (r *memRepo) Update(_ context.Context, current *note, p validate.Payload) error {
	if r.failPut != nil {
		return r.failPut
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[current.ID].Text = p.String("text")
	return nil
}

func (r *memRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

type recorder struct {
	mu     sync.Mutex
	events []synchub.ChangeEvent
}

func (r *recorder) BroadcastJSON(v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, v.(synchub.ChangeEvent))
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

var noteRules = validate.MustCompile(validate.Rules{"text": "required|string"})

func setupRouter(repo *memRepo, events resource.Broadcaster) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log, _ := test.NewNullLogger()
	h := resource.NewHandler(resource.New[note]("Note", repo, noteRules), log)
	h.Events = events

	r := gin.New()
	r.GET("/notes", h.List)
	r.GET("/notes/:id", h.Get)
	r.POST("/notes", h.Create)
	r.PUT("/notes/:id", h.Update)
	r.DELETE("/notes/:id", h.Delete)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	return m
}

func Test_Handler_CreateGetUpdateDelete(t *testing.T) {
	repo := newMemRepo()
	events := &recorder{}
	r := setupRouter(repo, events)

	w := do(r, http.MethodPost, "/notes", `{"text":"hello"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeBody(t, w)["id"].(string)

	w = do(r, http.MethodGet, "/notes/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello", decodeBody(t, w)["text"])

	w = do(r, http.MethodPut, "/notes/"+id, `{"text":"bye"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	w = do(r, http.MethodDelete, "/notes/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Note deleted successfully!", decodeBody(t, w)["message"])

	w = do(r, http.MethodGet, "/notes/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Note not found.", decodeBody(t, w)["message"])

	assert.Eventually(t, func() bool { return len(events.types()) == 3 }, time.Second, 10*time.Millisecond)
	assert.ElementsMatch(t, []string{"note.created", "note.updated", "note.deleted"}, events.types())
}

func Test_Handler_ValidationFailedBody(t *testing.T) {
	r := setupRouter(newMemRepo(), nil)

	w := do(r, http.MethodPost, "/notes", `{"text":""}`)

	require.Equal(t, http.StatusPreconditionFailed, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Validation failed", body["message"])
	assert.Equal(t, map[string]any{"text": []any{"The text field is required."}}, body["data"])
}

func Test_Handler_EmptyBodyIsValidatedNotRejected(t *testing.T) {
	r := setupRouter(newMemRepo(), nil)

	w := do(r, http.MethodPost, "/notes", "")

	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
}

func Test_Handler_InvalidJSON(t *testing.T) {
	r := setupRouter(newMemRepo(), nil)

	for _, body := range []string{`{"text":`, `[1,2]`} {
		w := do(r, http.MethodPost, "/notes", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func Test_Handler_SchemaRejectionIsBadRequest(t *testing.T) {
	r := setupRouter(newMemRepo(), nil)

	w := do(r, http.MethodPost, "/notes", `{"text":"dup"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Note validation failed: text: must be unique", decodeBody(t, w)["message"])
}

func Test_Handler_MalformedIDIsServerError(t *testing.T) {
	r := setupRouter(newMemRepo(), nil)

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		w := do(r, method, "/notes/bad-id", `{"text":"x"}`)
		assert.Equal(t, http.StatusInternalServerError, w.Code, method)
		assert.Equal(t, "internal server error", decodeBody(t, w)["message"])
	}
}

func Test_Handler_UpdateMissingBeforeValidation(t *testing.T) {
	r := setupRouter(newMemRepo(), nil)

	w := do(r, http.MethodPut, "/notes/n404", `{}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func Test_Handler_UpdateStoreFailureIsBadRequest(t *testing.T) {
	repo := newMemRepo()
	r := setupRouter(repo, nil)
	id, err := repo.Create(context.Background(), validate.Payload{"text": "a"})
	require.NoError(t, err)
	repo.failPut = errors.New("disk full")

	w := do(r, http.MethodPut, "/notes/"+id, `{"text":"b"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "could not save note", decodeBody(t, w)["message"])
}

func Test_Handler_ListEmptyAndFailing(t *testing.T) {
	repo := newMemRepo()
	r := setupRouter(repo, nil)

	w := do(r, http.MethodGet, "/notes", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	repo.failAll = errors.New("offline")
	w = do(r, http.MethodGet, "/notes", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func Test_Error_KindStatus(t *testing.T) {
	cases := map[resource.Kind]int{
		resource.KindValidationFailed: http.StatusPreconditionFailed,
		resource.KindNotFound:         http.StatusNotFound,
		resource.KindBadRequest:       http.StatusBadRequest,
		resource.KindServerError:      http.StatusInternalServerError,
	}
	for kind, status := range cases {
		err := &resource.Error{Kind: kind, Message: "m"}
		assert.Equal(t, status, err.Status(), kind.String())
	}

	cause := errors.New("cause")
	wrapped := &resource.Error{Kind: resource.KindServerError, Err: cause}
	assert.ErrorIs(t, wrapped, cause)
}
