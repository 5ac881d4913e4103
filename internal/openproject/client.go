// Package openproject is a small client for the OpenProject API v3
package openproject

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tildaslashalef/oplink/internal/config"
	"github.com/tildaslashalef/oplink/internal/loggy"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// APIError is an OpenProject error document
type APIError struct {
	StatusCode      int    `json:"-"`
	ErrorIdentifier string `json:"errorIdentifier"`
	Message         string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("openproject API error %d: %s", e.StatusCode, e.Message)
}

// Client talks to /api/v3
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	logger     *loggy.Logger
}

// NewClient builds a client authenticated with the personal access token from cfg,
// or with the OAuth2 client credentials grant when no token is set.
func NewClient(ctx context.Context, cfg config.OpenProjectConfig, logger *loggy.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("openproject url is not configured")
	}

	base := &http.Client{Timeout: cfg.Timeout}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)

	var hc *http.Client
	switch {
	case cfg.Token != "":
		hc = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"}))
	case cfg.ClientID != "":
		cc := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       []string{"api_v3"},
		}
		hc = cc.Client(ctx)
	default:
		return nil, fmt.Errorf("openproject credentials are not configured")
	}
	hc.Timeout = cfg.Timeout

	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		httpClient: hc,
		maxRetries: cfg.MaxRetries,
		logger:     logger.With("component", "openproject"),
	}, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	target := c.baseURL + "/api/v3" + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("creating request: %w", err))
		}
		req.Header.Set("Accept", "application/hal+json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("executing request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response body: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			apiErr := &APIError{StatusCode: resp.StatusCode}
			if json.Unmarshal(body, apiErr) != nil || apiErr.Message == "" {
				apiErr.Message = http.StatusText(resp.StatusCode)
			}
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}

		if err := json.Unmarshal(body, out); err != nil {
			return backoff.Permanent(fmt.Errorf("decoding response: %w", err))
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	return backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.maxRetries)), ctx))
}

type link struct {
	Href  string `json:"href"`
	Title string `json:"title"`
}

// WorkPackage is the subset of a work package oplink shows
type WorkPackage struct {
	ID      int
	Subject string
	Type    string
	Status  string
	Project string
}

type workPackageDoc struct {
	ID      int    `json:"id"`
	Subject string `json:"subject"`
	Links   struct {
		Type    link `json:"type"`
		Status  link `json:"status"`
		Project link `json:"project"`
	} `json:"_links"`
}

func (d workPackageDoc) toWorkPackage() WorkPackage {
	return WorkPackage{
		ID:      d.ID,
		Subject: d.Subject,
		Type:    d.Links.Type.Title,
		Status:  d.Links.Status.Title,
		Project: d.Links.Project.Title,
	}
}

// GetWorkPackage fetches a single work package
func (c *Client) GetWorkPackage(ctx context.Context, id string) (*WorkPackage, error) {
	if _, err := strconv.Atoi(id); err != nil {
		return nil, fmt.Errorf("invalid work package id %q", id)
	}

	var doc workPackageDoc
	if err := c.get(ctx, "/work_packages/"+id, nil, &doc); err != nil {
		return nil, fmt.Errorf("getting work package %s: %w", id, err)
	}
	wp := doc.toWorkPackage()
	return &wp, nil
}

// SearchWorkPackages finds work packages whose subject or id matches term
func (c *Client) SearchWorkPackages(ctx context.Context, term string, limit int) ([]WorkPackage, error) {
	filters, err := json.Marshal([]map[string]any{
		{"subjectOrId": map[string]any{"operator": "**", "values": []string{term}}},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding filters: %w", err)
	}

	query := url.Values{}
	query.Set("filters", string(filters))
	query.Set("pageSize", strconv.Itoa(limit))

	var collection struct {
		Embedded struct {
			Elements []workPackageDoc `json:"elements"`
		} `json:"_embedded"`
	}
	if err := c.get(ctx, "/work_packages", query, &collection); err != nil {
		return nil, fmt.Errorf("searching work packages: %w", err)
	}

	result := make([]WorkPackage, 0, len(collection.Embedded.Elements))
	for _, doc := range collection.Embedded.Elements {
		result = append(result, doc.toWorkPackage())
	}
	return result, nil
}

// Notification is an in-app notification of the authenticated user
type Notification struct {
	ID        int
	Reason    string
	Read      bool
	CreatedAt time.Time
	Resource  string
	Project   string
	Actor     string
}

// Notifications lists the newest notifications, unread first
func (c *Client) Notifications(ctx context.Context, limit int, unreadOnly bool) ([]Notification, error) {
	query := url.Values{}
	query.Set("pageSize", strconv.Itoa(limit))
	query.Set("sortBy", `[["readIAN","asc"],["id","desc"]]`)
	if unreadOnly {
		query.Set("filters", `[{"readIAN":{"operator":"=","values":["f"]}}]`)
	}

	var collection struct {
		Embedded struct {
			Elements []struct {
				ID        int       `json:"id"`
				Reason    string    `json:"reason"`
				ReadIAN   bool      `json:"readIAN"`
				CreatedAt time.Time `json:"createdAt"`
				Links     struct {
					Resource link `json:"resource"`
					Project  link `json:"project"`
					Actor    link `json:"actor"`
				} `json:"_links"`
			} `json:"elements"`
		} `json:"_embedded"`
	}
	if err := c.get(ctx, "/notifications", query, &collection); err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}

	result := make([]Notification, 0, len(collection.Embedded.Elements))
	for _, e := range collection.Embedded.Elements {
		result = append(result, Notification{
			ID:        e.ID,
			Reason:    e.Reason,
			Read:      e.ReadIAN,
			CreatedAt: e.CreatedAt,
			Resource:  e.Links.Resource.Title,
			Project:   e.Links.Project.Title,
			Actor:     e.Links.Actor.Title,
		})
	}
	return result, nil
}
