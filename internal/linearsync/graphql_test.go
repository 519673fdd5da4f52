package linearsync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatherly-app/gatherly-backend/pkg/config"
)

func newGraphQLTestClient(t *testing.T, serverURL string) *GraphQLClient {
	t.Helper()
	client, err := NewGraphQLClient(config.LinearConfig{
		APIToken:     "lin_api_test",
		APIURL:       serverURL,
		SyncPageSize: 2,
	})
	require.NoError(t, err)
	return client
}

func TestTeamsSendsQueryAndParsesPage(t *testing.T) {
	var gotAuth string
	var gotVars map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var body graphqlRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotVars = body.Variables

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"data": {"teams": {
				"nodes": [{"id": "team_1", "key": "ENG", "name": "Engineering"}],
				"pageInfo": {"hasNextPage": true, "endCursor": "cur_1"}
			}}
		}`))
	}))
	defer server.Close()

	client := newGraphQLTestClient(t, server.URL)
	page, err := client.Teams(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, "lin_api_test", gotAuth)
	assert.Equal(t, float64(2), gotVars["first"])
	require.Len(t, page.Teams, 1)
	assert.Equal(t, "team_1", page.Teams[0].ID)
	assert.True(t, page.HasNextPage)
	assert.Equal(t, "cur_1", page.EndCursor)
}

func TestTeamsPassesCursor(t *testing.T) {
	var gotVars map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body graphqlRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotVars = body.Variables
		_, _ = w.Write([]byte(`{"data": {"teams": {"nodes": [], "pageInfo": {"hasNextPage": false, "endCursor": ""}}}}`))
	}))
	defer server.Close()

	client := newGraphQLTestClient(t, server.URL)
	_, err := client.Teams(context.Background(), "cur_1")
	require.NoError(t, err)
	assert.Equal(t, "cur_1", gotVars["after"])
}

func TestTeamsRetriesAfterRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"data": {"teams": {"nodes": [{"id": "team_1", "key": "ENG", "name": "Engineering"}], "pageInfo": {"hasNextPage": false, "endCursor": ""}}}}`))
	}))
	defer server.Close()

	client := newGraphQLTestClient(t, server.URL)
	page, err := client.Teams(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	require.Len(t, page.Teams, 1)
}

func TestTeamsGivesUpAfterRepeatedRateLimits(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newGraphQLTestClient(t, server.URL)
	_, err := client.Teams(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, int32(maxRateLimitRetries+1), calls.Load())
}

func TestTeamsDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := newGraphQLTestClient(t, server.URL)
	_, err := client.Teams(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTeamsSurfacesGraphQLErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors": [{"message": "invalid token"}]}`))
	}))
	defer server.Close()

	client := newGraphQLTestClient(t, server.URL)
	_, err := client.Teams(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token")
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, int64(0), int64(parseRetryAfter("")))
	assert.Equal(t, int64(0), int64(parseRetryAfter("soon")))
	assert.Equal(t, int64(5e9), int64(parseRetryAfter("5")))
}
