package qdrant_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiregrid/matchengine/internal/adapter/vector/qdrant"
	"github.com/hiregrid/matchengine/internal/domain"
)

func TestIndex_EnsureCollection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr bool
	}{
		{
			name: "collection already exists",
			handler: func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, http.MethodGet, r.Method)
				w.WriteHeader(http.StatusOK)
			},
		},
		{
			name: "create new collection",
			handler: func(w http.ResponseWriter, r *http.Request) {
				if r.Method == http.MethodGet {
					w.WriteHeader(http.StatusNotFound)
					return
				}
				require.Equal(t, http.MethodPut, r.Method)
				var payload map[string]any
				require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
				vectors := payload["vectors"].(map[string]any)
				assert.Equal(t, float64(1536), vectors["size"])
				assert.Equal(t, "Cosine", vectors["distance"])
				w.WriteHeader(http.StatusOK)
			},
		},
		{
			name: "create fails",
			handler: func(w http.ResponseWriter, r *http.Request) {
				if r.Method == http.MethodGet {
					w.WriteHeader(http.StatusNotFound)
					return
				}
				w.WriteHeader(http.StatusInternalServerError)
			},
			wantErr: true,
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			idx := qdrant.New(srv.URL, "", "candidates")
			err := idx.EnsureCollection(context.Background(), 1536)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestIndex_UpsertCandidate(t *testing.T) {
	t.Parallel()
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/collections/candidates/points", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	idx := qdrant.New(srv.URL, "secret", "candidates")
	err := idx.UpsertCandidate(context.Background(), "c-1", []float32{0.1, 0.2}, map[string]any{"name": "Ada"})
	require.NoError(t, err)

	points := gotBody["points"].([]any)
	require.Len(t, points, 1)
	pt := points[0].(map[string]any)
	assert.Equal(t, "c-1", pt["id"])
	payload := pt["payload"].(map[string]any)
	assert.Equal(t, "c-1", payload["candidate_id"])
	assert.Equal(t, "Ada", payload["name"])
}

func TestIndex_UpsertCandidate_RequiresVector(t *testing.T) {
	t.Parallel()
	idx := qdrant.New("http://unused", "", "candidates")
	err := idx.UpsertCandidate(context.Background(), "c-1", nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestIndex_SearchSimilar(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/collections/candidates/points/search", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{
				{"id": "c-2", "score": 0.91},
				{"id": 7, "score": 0.80, "payload": map[string]any{"candidate_id": "c-7"}},
			},
		})
	}))
	defer srv.Close()

	idx := qdrant.New(srv.URL, "", "candidates")
	hits, err := idx.SearchSimilar(context.Background(), []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "c-2", hits[0].CandidateID)
	assert.InDelta(t, 0.91, hits[0].Score, 1e-9)
	// Numeric point ids fall back to the payload candidate_id.
	assert.Equal(t, "c-7", hits[1].CandidateID)
}

func TestIndex_SearchSimilar_ServerError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	idx := qdrant.New(srv.URL, "", "candidates")
	_, err := idx.SearchSimilar(context.Background(), []float32{1}, 5)
	require.Error(t, err)
}
