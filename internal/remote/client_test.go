package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantlabs/verdant/internal/entity"
	"github.com/verdantlabs/verdant/internal/loggy"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, StaticTokenSource("test-token"), 5*time.Second, 0, loggy.NewNoopLogger())
	return client, srv
}

func TestCreateCategory(t *testing.T) {
	var gotAuth, gotIdemKey string

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/categories", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotIdemKey = r.Header.Get("Idempotency-Key")

		var in entity.Category
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Empty(t, in.ID, "temp ids must be stripped before the client is called")

		in.ID = "cat_01HR20"
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(in)
	}))

	created, err := client.CreateCategory(context.Background(), &entity.Category{
		TemplateID: "tpl_1",
		Name:       "Water",
		Weight:     10,
	}, "idem-key-1")
	require.NoError(t, err)

	assert.Equal(t, "cat_01HR20", created.ID)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "idem-key-1", gotIdemKey)
}

func TestRequestIDHeader(t *testing.T) {
	var ids []string

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids = append(ids, r.Header.Get("X-Request-ID"))
		_ = json.NewEncoder(w).Encode(entity.Assessment{ID: "asm_1"})
	}))

	_, err := client.GetAssessment(context.Background(), "asm_1")
	require.NoError(t, err)
	_, err = client.GetAssessment(context.Background(), "asm_1")
	require.NoError(t, err)

	require.Len(t, ids, 2)
	for _, id := range ids {
		assert.True(t, strings.HasPrefix(id, "req_"), "got %q", id)
	}
	assert.NotEqual(t, ids[0], ids[1], "every request carries its own id")
}

func TestAPIErrorDecoding(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"message": "name is required",
			"error":   "validation_failed",
		})
	}))

	_, err := client.CreateCategory(context.Background(), &entity.Category{}, "k")
	require.Error(t, err)

	var apiErr APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, "validation_failed", apiErr.ErrorCode)
	assert.True(t, IsPermanent(err))
	assert.False(t, IsTransient(err))
}

func TestUnreachableIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // immediately, so the address refuses connections

	client := NewClient(srv.URL, StaticTokenSource(""), time.Second, 0, loggy.NewNoopLogger())

	_, err := client.ListCategories(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnreachable)
	assert.True(t, IsTransient(err))
	assert.False(t, IsPermanent(err))
}

func TestServerErrorIsTransient(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
	}))

	err := client.do(context.Background(), http.MethodDelete, "/api/categories/cat_1", "", nil, nil)
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestGetRetriesTransientFailures(t *testing.T) {
	attempts := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode([]*entity.Category{{ID: "cat_1", Name: "Water"}})
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(srv.URL, StaticTokenSource(""), 5*time.Second, 3, loggy.NewNoopLogger())

	cats, err := client.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, 3, attempts)
}

func TestGetDoesNotRetryPermanentFailures(t *testing.T) {
	attempts := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "no such report"})
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(srv.URL, StaticTokenSource(""), 5*time.Second, 3, loggy.NewNoopLogger())

	_, err := client.GetReport(context.Background(), "rpt_missing")
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestVerifyToken(t *testing.T) {
	t.Run("valid token", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/auth/verify", r.URL.Path)
			w.WriteHeader(http.StatusOK)
		}))

		valid, err := client.VerifyToken(context.Background())
		require.NoError(t, err)
		assert.True(t, valid)
	})

	t.Run("invalid token", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "invalid token"})
		}))

		valid, err := client.VerifyToken(context.Background())
		require.NoError(t, err)
		assert.False(t, valid)
	})
}

func TestHealth(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))

	assert.NoError(t, client.Health(context.Background()))
}
