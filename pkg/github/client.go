package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pollux-backend/internal/gitevent/domain"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	platformName  = "Github"
	apiVersion    = "2022-11-28"
	eventsPerPage = 30
)

// actionByType maps GitHub event types to the canonical action vocabulary.
// Types not listed here leave the normalized action empty and the event gets
// skipped during reconciliation.
var actionByType = map[string]string{
	"PushEvent":              "pushed",
	"CreateEvent":            "created",
	"DeleteEvent":            "deleted",
	"IssuesEvent":            "opened",
	"PullRequestEvent":       "opened",
	"IssueCommentEvent":      "commented",
	"PullRequestReviewEvent": "approved",
	"WatchEvent":             "starred",
	"ForkEvent":              "forked",
	"MemberEvent":            "joined",
	"ReleaseEvent":           "released",
}

// Client fetches user events from the GitHub REST API. The per-page ETag cache
// makes repeat fetches cheap: GitHub answers 304 for unchanged pages and those
// responses do not count against the rate limit. The cache is only touched
// under the coordinator's platform lock.
type Client struct {
	username string
	baseURL  string
	http     *http.Client
	logger   *zap.Logger
	etags    []string
}

// NewClient builds a GitHub client authenticated with a bearer token
func NewClient(token, username string, logger *zap.Logger) *Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(context.Background(), src)
	httpClient.Timeout = 30 * time.Second

	return &Client{
		username: username,
		baseURL:  "https://api.github.com",
		http:     httpClient,
		logger:   logger,
	}
}

func (c *Client) Name() string {
	return platformName
}

// pageState carries the inputs of one page fetch: the page index, its URL and
// the cached entity tag to revalidate against
type pageState struct {
	page int
	url  string
	etag string
}

// pageResult is what one page fetch produced
type pageResult struct {
	events      []domain.NormalizedEvent
	next        string
	etag        string
	notModified bool
}

// FetchEvents walks the user's event pages via the Link header. The events
// endpoint has no window parameter, so the full available backlog is returned
// and the persistence engine discards rows it already holds.
func (c *Client) FetchEvents(ctx context.Context, window domain.SyncWindow) ([]domain.NormalizedEvent, error) {
	c.logger.Debug("github has no window parameter, fetching full backlog",
		zap.Time("after", window.After),
		zap.Time("before", window.Before))

	state := pageState{
		page: 1,
		url:  fmt.Sprintf("%s/users/%s/events?per_page=%d&page=1", c.baseURL, c.username, eventsPerPage),
	}

	var events []domain.NormalizedEvent
	for {
		state.etag = c.cachedETag(state.page)

		result, err := c.fetchPage(ctx, state)
		if err != nil {
			return nil, err
		}

		if result.notModified {
			// Nothing changed from this page on; what we have is complete
			c.logger.Debug("got 304 with etag set, no new events",
				zap.Int("page", state.page))
			return events, nil
		}

		c.storeETag(state.page, result.etag)
		events = append(events, result.events...)

		if result.next == "" {
			c.logger.Debug("last page reached", zap.Int("page", state.page))
			return events, nil
		}

		state = pageState{page: state.page + 1, url: result.next}
	}
}

func (c *Client) fetchPage(ctx context.Context, state pageState) (*pageResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, state.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if state.etag != "" {
		req.Header.Set("If-None-Match", state.etag)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting github events page %d: %w", state.page, err)
	}
	defer resp.Body.Close()

	// 304 is only meaningful as a short-circuit when we actually sent a tag
	if resp.StatusCode == http.StatusNotModified && state.etag != "" {
		return &pageResult{notModified: true}, nil
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("github returned %s for events page %d: %s", resp.Status, state.page, strings.TrimSpace(string(body)))
	}

	next, err := nextPageURL(resp.Header.Get("Link"))
	if err != nil {
		return nil, fmt.Errorf("events page %d: %w", state.page, err)
	}

	var raw []apiEvent
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding github events page %d: %w", state.page, err)
	}

	result := &pageResult{next: next, etag: resp.Header.Get("ETag")}
	for _, ev := range raw {
		if !ev.Public {
			continue
		}
		result.events = append(result.events, domain.NormalizedEvent{
			ExternalProjectID: ev.Repo.ID,
			ProjectName:       ev.Repo.Name,
			ProjectURL:        ev.Repo.URL,
			RawAction:         ev.Type,
			Action:            actionByType[ev.Type],
			CreatedAt:         ev.CreatedAt,
		})
	}

	return result, nil
}

// FetchProjectDetail looks a repository up by its numeric id. Repositories
// GitHub does not disclose to us resolve to (nil, nil).
func (c *Client) FetchProjectDetail(ctx context.Context, externalProjectID int64) (*domain.ProjectDetail, error) {
	url := fmt.Sprintf("%s/repositories/%d", c.baseURL, externalProjectID)
	c.logger.Debug("fetching project detail from github", zap.String("url", url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting github repository %d: %w", externalProjectID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusForbidden {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github returned %s for repository %d", resp.Status, externalProjectID)
	}

	var repo apiRepository
	if err := json.NewDecoder(resp.Body).Decode(&repo); err != nil {
		return nil, fmt.Errorf("decoding github repository %d: %w", externalProjectID, err)
	}

	visibility := repo.Visibility
	if visibility == "" {
		if repo.Private {
			visibility = "private"
		} else {
			visibility = "public"
		}
	}

	return &domain.ProjectDetail{
		ExternalID: repo.ID,
		Name:       repo.FullName,
		URL:        repo.HTMLURL,
		Visibility: visibility,
	}, nil
}

// nextPageURL extracts the rel="next" target from a Link header like:
// <https://api.github.com/user/26086452/events?per_page=2&page=2>; rel="next",
// <https://api.github.com/user/26086452/events?per_page=2&page=6>; rel="last"
// An empty result with nil error means this was the last page.
func nextPageURL(header string) (string, error) {
	if header == "" {
		return "", fmt.Errorf("no link header in github response")
	}

	for _, link := range strings.Split(header, ",") {
		parts := strings.Split(link, ";")
		if len(parts) != 2 {
			continue
		}
		if strings.TrimSpace(parts[1]) != `rel="next"` {
			continue
		}

		url := strings.TrimSpace(parts[0])
		if !strings.HasPrefix(url, "<") || !strings.HasSuffix(url, ">") {
			continue
		}
		return url[1 : len(url)-1], nil
	}

	return "", nil
}

func (c *Client) cachedETag(page int) string {
	if page-1 < len(c.etags) {
		return c.etags[page-1]
	}
	return ""
}

func (c *Client) storeETag(page int, etag string) {
	if etag == "" {
		return
	}
	for len(c.etags) < page {
		c.etags = append(c.etags, "")
	}
	c.etags[page-1] = etag
}

// apiEvent is the wire shape of one entry from GET /users/{user}/events
type apiEvent struct {
	Type      string  `json:"type"`
	Public    bool    `json:"public"`
	CreatedAt string  `json:"created_at"`
	Repo      apiRepo `json:"repo"`
}

type apiRepo struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// apiRepository is the wire shape of GET /repositories/{id}
type apiRepository struct {
	ID         int64  `json:"id"`
	FullName   string `json:"full_name"`
	HTMLURL    string `json:"html_url"`
	Private    bool   `json:"private"`
	Visibility string `json:"visibility"`
}
