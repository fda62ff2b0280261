package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_APIClient_SendsTokenAndDecodes(t *testing.T) {
	var gotAuth, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"abc"}`))
	}))
	defer srv.Close()

	c := &apiClient{BaseURL: srv.URL + "/", Token: "t0k", HTTP: srv.Client()}
	var out map[string]any
	err := c.do(context.Background(), http.MethodPost, "/books", map[string]any{"rating": 5}, &out)

	require.NoError(t, err)
	assert.Equal(t, "Bearer t0k", gotAuth)
	assert.JSONEq(t, `{"rating":5}`, gotBody)
	assert.Equal(t, "abc", out["id"])
}

func Test_APIClient_ReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPreconditionFailed)
		_, _ = w.Write([]byte(`{"success":false}`))
	}))
	defer srv.Close()

	c := &apiClient{BaseURL: srv.URL, HTTP: srv.Client()}
	err := c.do(context.Background(), http.MethodPut, "/books/1", map[string]any{}, nil)

	var apiErr *apiError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusPreconditionFailed, apiErr.Status)
}

func Test_Token_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")

	tok, err := readToken(path)
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, saveToken(path, "abc"))
	tok, err = readToken(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	require.NoError(t, clearToken(path))
	require.NoError(t, clearToken(path))
	assert.Error(t, saveToken(path, ""))
}

func Test_Helpers(t *testing.T) {
	assert.Equal(t, "/books", collectionPath("books", ""))
	assert.Equal(t, "/users/a%2Fb", collectionPath("users", "a/b"))

	u, err := websocketURL("https://api.example.com:8443", "/ws")
	require.NoError(t, err)
	assert.Equal(t, "wss://api.example.com:8443/ws", u)

	var buf bytes.Buffer
	printEvent(&buf, []byte("not json"))
	printEvent(&buf, []byte(`{"type":"book.created"}`))
	assert.Contains(t, buf.String(), "not json\n")
	assert.Contains(t, buf.String(), `"type": "book.created"`)
}
