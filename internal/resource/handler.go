package resource

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/sirupsen/logrus"

	"bookreviews/internal/sync"
	"bookreviews/internal/validate"
)

// Broadcaster receives a change event after every successful write.
type Broadcaster interface {
	BroadcastJSON(v any)
}

// Handler exposes a Resource over HTTP.
type Handler[T any] struct {
	Resource *Resource[T]
	Log      logrus.FieldLogger
	Events   Broadcaster
	// Topic prefixes change event types, e.g. "book" gives "book.created".
	Topic string
	// Timeout bounds each request's store work; zero means no extra bound.
	Timeout        time.Duration
	DeletedMessage string
}

func NewHandler[T any](res *Resource[T], log logrus.FieldLogger) *Handler[T] {
	return &Handler[T]{
		Resource:       res,
		Log:            log,
		Topic:          strings.ToLower(res.Name),
		DeletedMessage: res.Name + " deleted successfully!",
	}
}

// List handles GET /<collection>.
func (h *Handler[T]) List(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	items, err := h.Resource.List(ctx)
	if err != nil {
		h.fail(c, "list", err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// Get handles GET /<collection>/:id.
func (h *Handler[T]) Get(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	item, err := h.Resource.Get(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, "get", err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// Create handles POST /<collection>.
func (h *Handler[T]) Create(c *gin.Context) {
	p, ok := h.payload(c)
	if !ok {
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	id, err := h.Resource.Create(ctx, p)
	if err != nil {
		h.fail(c, "create", err)
		return
	}

	h.publish("created", id)
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// Update handles PUT /<collection>/:id.
func (h *Handler[T]) Update(c *gin.Context) {
	p, ok := h.payload(c)
	if !ok {
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	id := c.Param("id")
	if err := h.Resource.Update(ctx, id, p); err != nil {
		h.fail(c, "update", err)
		return
	}

	h.publish("updated", id)
	c.Status(http.StatusNoContent)
}

// Delete handles DELETE /<collection>/:id.
func (h *Handler[T]) Delete(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	id := c.Param("id")
	if err := h.Resource.Delete(ctx, id); err != nil {
		h.fail(c, "delete", err)
		return
	}

	h.publish("deleted", id)
	c.JSON(http.StatusOK, gin.H{"message": h.DeletedMessage})
}

func (h *Handler[T]) context(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.Timeout <= 0 {
		return c.Request.Context(), func() {}
	}
	return context.WithTimeout(c.Request.Context(), h.Timeout)
}

// payload decodes the body as a JSON object. An empty body is an empty
// payload and is left to the validator.
func (h *Handler[T]) payload(c *gin.Context) (validate.Payload, bool) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "could not read body"})
		return nil, false
	}

	p := validate.Payload{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return p, true
	}
	if err := binding.JSON.BindBody(raw, &p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid json"})
		return nil, false
	}
	return p, true
}

func (h *Handler[T]) fail(c *gin.Context, op string, err error) {
	var re *Error
	if !errors.As(err, &re) {
		re = &Error{Kind: KindServerError, Message: "internal server error", Err: err}
	}

	if h.Log != nil {
		entry := h.Log.WithFields(logrus.Fields{
			"resource":   h.Resource.Name,
			"op":         op,
			"kind":       re.Kind.String(),
			"request_id": c.Writer.Header().Get("X-Request-ID"),
		})
		switch {
		case re.Kind == KindServerError:
			entry.WithError(re.Err).Error("request failed")
		case re.Err != nil:
			entry.WithError(re.Err).Warn("request rejected")
		default:
			entry.Debug("request rejected")
		}
	}

	if re.Kind == KindValidationFailed {
		c.JSON(re.Status(), gin.H{
			"success": false,
			"message": re.Message,
			"data":    re.Fields,
		})
		return
	}
	c.JSON(re.Status(), gin.H{"message": re.Message})
}

func (h *Handler[T]) publish(action, id string) {
	if h.Events == nil {
		return
	}
	ev := sync.ChangeEvent{
		Type: h.Topic + "." + action,
		ID:   id,
		At:   time.Now().UTC(),
	}
	go h.Events.BroadcastJSON(ev)
}
