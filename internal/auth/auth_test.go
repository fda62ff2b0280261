package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"bookreviews/pkg/models"
)

var tokens = TokenService{Secret: []byte("test-secret"), Issuer: "bookreviews-test", Duration: time.Hour}

type staticUsers map[string]*models.User

func (s staticUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return s[email], nil
}

func newUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := BcryptHasher{Cost: 4}.Hash(password)
	require.NoError(t, err)
	return &models.User{ID: primitive.NewObjectID(), Username: "alice", Email: "alice@example.com", PasswordHash: hash}
}

func Test_TokenService_SignAndParse(t *testing.T) {
	u := newUser(t, "pw")

	raw, exp, err := tokens.Sign(u)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, u.ID.Hex(), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.NotEmpty(t, claims.ID)

	other := TokenService{Secret: []byte("other"), Issuer: tokens.Issuer, Duration: time.Hour}
	_, err = other.Parse(raw)
	assert.Error(t, err)
}

func Test_TokenService_RejectsExpired(t *testing.T) {
	expired := TokenService{Secret: tokens.Secret, Issuer: tokens.Issuer, Duration: -time.Minute}
	raw, _, err := expired.Sign(newUser(t, "pw"))
	require.NoError(t, err)

	_, err = tokens.Parse(raw)
	assert.Error(t, err)
}

func Test_BcryptHasher_Compare(t *testing.T) {
	h := BcryptHasher{Cost: 4}
	hash, err := h.Hash("correct horse")
	require.NoError(t, err)

	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, h.Compare(hash, "correct horse"))
	assert.False(t, h.Compare(hash, "wrong"))
}

func gatedRouter(loginURL string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log, _ := test.NewNullLogger()
	r := gin.New()
	r.POST("/books", NewGate(tokens, loginURL, log).Require(), func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"by": MustGetClaims(c).Username})
	})
	return r
}

func Test_Gate(t *testing.T) {
	signed, _, err := tokens.Sign(newUser(t, "pw"))
	require.NoError(t, err)

	tests := []struct {
		name     string
		loginURL string
		header   string
		want     int
	}{
		{name: "no token", header: "", want: http.StatusUnauthorized},
		{name: "not bearer", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer abc", want: http.StatusUnauthorized},
		{name: "redirects to login", loginURL: "/login", header: "", want: http.StatusFound},
		{name: "valid token", header: "Bearer " + signed, want: http.StatusCreated},
		{name: "lowercase scheme", header: "bearer " + signed, want: http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/books", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			gatedRouter(tt.loginURL).ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusFound {
				assert.Equal(t, tt.loginURL, w.Header().Get("Location"))
			}
		})
	}
}

func Test_Login(t *testing.T) {
	gin.SetMode(gin.TestMode)
	u := newUser(t, "s3cret")
	log, _ := test.NewNullLogger()
	h := NewHandler(staticUsers{u.Email: u}, tokens, log)
	h.Hasher = BcryptHasher{Cost: 4}
	r := gin.New()
	h.RegisterRoutes(r.Group("/auth"))

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusBadRequest, post(`{}`).Code)
	assert.Equal(t, http.StatusUnauthorized, post(`{"email":"alice@example.com","password":"nope"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, post(`{"email":"bob@example.com","password":"s3cret"}`).Code)

	w := post(`{"email":"alice@example.com","password":"s3cret"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var res struct {
		Token string         `json:"token"`
		User  map[string]any `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, u.ID.Hex(), res.User["id"])
	assert.NotContains(t, w.Body.String(), "password")

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+res.Token)
	me := httptest.NewRecorder()
	r.ServeHTTP(me, req)
	assert.Equal(t, http.StatusOK, me.Code)
	assert.Contains(t, me.Body.String(), "alice@example.com")
}
