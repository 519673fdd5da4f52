package linearsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/gatherly-app/gatherly-backend/pkg/config"
	pkgerrors "github.com/gatherly-app/gatherly-backend/pkg/errors"
)

const (
	errorBodyReadLimit  int64 = 1024
	defaultRetryDelay         = 2 * time.Second
	maxRateLimitRetries       = 3

	teamsQuery = `query Teams($first: Int!, $after: String) {
  teams(first: $first, after: $after) {
    nodes { id key name }
    pageInfo { hasNextPage endCursor }
  }
}`
)

// GraphQLClient fetches workspace data from the Linear API. Rate-limited
// requests are retried after the provider-specified delay rather than
// surfaced as failures.
type GraphQLClient struct {
	httpClient *http.Client
	apiURL     string
	apiToken   string
	pageSize   int
}

type GraphQLOption func(*GraphQLClient)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) GraphQLOption {
	return func(c *GraphQLClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func NewGraphQLClient(cfg config.LinearConfig, opts ...GraphQLOption) (*GraphQLClient, error) {
	token := strings.TrimSpace(cfg.APIToken)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "linear api token is required")
	}

	client := &GraphQLClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiURL:     strings.TrimSpace(cfg.APIURL),
		apiToken:   token,
		pageSize:   cfg.SyncPageSize,
	}
	if client.apiURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "linear api url is required")
	}
	if client.pageSize <= 0 {
		client.pageSize = 50
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// TeamNode is one team as the Linear API reports it.
type TeamNode struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

// TeamsPage is one page of the workspace team listing.
type TeamsPage struct {
	Teams       []TeamNode
	EndCursor   string
	HasNextPage bool
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type teamsResponse struct {
	Data struct {
		Teams struct {
			Nodes    []TeamNode `json:"nodes"`
			PageInfo struct {
				HasNextPage bool   `json:"hasNextPage"`
				EndCursor   string `json:"endCursor"`
			} `json:"pageInfo"`
		} `json:"teams"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Teams fetches one page of the workspace's teams, resuming from after when
// it is non-empty.
func (c *GraphQLClient) Teams(ctx context.Context, after string) (*TeamsPage, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "linear client not configured")
	}

	variables := map[string]any{"first": c.pageSize}
	if after != "" {
		variables["after"] = after
	}

	var parsed teamsResponse
	if err := c.execute(ctx, graphqlRequest{Query: teamsQuery, Variables: variables}, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Errors) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("linear teams query failed: %s", parsed.Errors[0].Message))
	}

	return &TeamsPage{
		Teams:       parsed.Data.Teams.Nodes,
		EndCursor:   parsed.Data.Teams.PageInfo.EndCursor,
		HasNextPage: parsed.Data.Teams.PageInfo.HasNextPage,
	}, nil
}

func (c *GraphQLClient) execute(ctx context.Context, req graphqlRequest, out any) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal graphql request")
	}

	// The provider tells us how long to wait when it throttles; the backoff
	// prefers that over the fixed delay.
	var retryAfter time.Duration
	backoff := retry.WithMaxRetries(maxRateLimitRetries, retry.BackoffFunc(func() (time.Duration, bool) {
		if retryAfter > 0 {
			delay := retryAfter
			retryAfter = 0
			return delay, false
		}
		return defaultRetryDelay, false
	}))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build graphql request")
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", c.apiToken)

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return retry.RetryableError(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute graphql request"))
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, errorBodyReadLimit))
			return retry.RetryableError(pkgerrors.New(pkgerrors.CodeDependency, "linear api rate limited"))
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
			return retry.RetryableError(pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("linear api status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))))
		}
		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
			return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("linear api status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))))
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode graphql response")
		}
		return nil
	})
}

func parseRetryAfter(header string) time.Duration {
	trimmed := strings.TrimSpace(header)
	if trimmed == "" {
		return 0
	}
	seconds, err := strconv.Atoi(trimmed)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
