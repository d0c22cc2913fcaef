package gitlab

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pollux-backend/internal/gitevent/domain"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	platformName = "Gitlab"
	dateLayout   = "2006-01-02"

	// pageWarnThreshold flags windows that grew suspiciously large
	pageWarnThreshold = 20
)

// actionByName maps GitLab action_name values to the canonical vocabulary
var actionByName = map[string]string{
	"pushed to":    "pushed",
	"pushed new":   "pushed",
	"created":      "created",
	"opened":       "opened",
	"closed":       "closed",
	"accepted":     "merged",
	"merged":       "merged",
	"commented on": "commented",
	"joined":       "joined",
	"left":         "left",
	"deleted":      "deleted",
	"approved":     "approved",
}

// Client fetches user events from the GitLab REST API. Unlike GitHub, the
// events endpoint takes explicit after/before dates, so the coordinator can
// narrow each fetch to the unsynced window.
type Client struct {
	userID  string
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient builds a GitLab client authenticated with a bearer token
func NewClient(token, userID string, logger *zap.Logger) *Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(context.Background(), src)
	httpClient.Timeout = 30 * time.Second

	return &Client{
		userID:  userID,
		baseURL: "https://gitlab.com/api/v4",
		http:    httpClient,
		logger:  logger,
	}
}

func (c *Client) Name() string {
	return platformName
}

// FetchEvents pages through the user's events for the window, driven by the
// x-total-pages / x-page response headers
func (c *Client) FetchEvents(ctx context.Context, window domain.SyncWindow) ([]domain.NormalizedEvent, error) {
	after := window.After.Format(dateLayout)
	before := window.Before.Format(dateLayout)
	if !window.After.Before(window.Before) {
		c.logger.Warn("after >= before, gitlab will likely return no events",
			zap.String("after", after),
			zap.String("before", before))
	}

	url := fmt.Sprintf("%s/users/%s/events?after=%s&before=%s", c.baseURL, c.userID, after, before)
	c.logger.Debug("fetching events from gitlab", zap.String("url", url))

	var events []domain.NormalizedEvent
	page := 1
	for {
		pageEvents, totalPages, err := c.fetchPage(ctx, url, page)
		if err != nil {
			return nil, err
		}

		if page == 1 && totalPages > pageWarnThreshold {
			c.logger.Warn("window spans many pages",
				zap.Int("total_pages", totalPages))
		}

		events = append(events, pageEvents...)

		if page >= totalPages {
			return events, nil
		}
		page++
	}
}

func (c *Client) fetchPage(ctx context.Context, url string, page int) ([]domain.NormalizedEvent, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s&page=%d", url, page), nil)
	if err != nil {
		return nil, 0, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("requesting gitlab events page %d: %w", page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, 0, fmt.Errorf("gitlab returned %s for events page %d: %s", resp.Status, page, strings.TrimSpace(string(body)))
	}

	totalPages, err := headerInt(resp.Header, "x-total-pages")
	if err != nil {
		return nil, 0, err
	}
	reportedPage, err := headerInt(resp.Header, "x-page")
	if err != nil {
		return nil, 0, err
	}
	if reportedPage != page {
		return nil, 0, fmt.Errorf("gitlab reported page %d while fetching page %d", reportedPage, page)
	}

	var raw []apiEvent
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, 0, fmt.Errorf("decoding gitlab events page %d: %w", page, err)
	}

	events := make([]domain.NormalizedEvent, 0, len(raw))
	for _, ev := range raw {
		if ev.PushData != nil {
			// Commit counts are not persisted yet; surfaced for debugging
			c.logger.Debug("push event",
				zap.Int64("project_id", ev.ProjectID),
				zap.Int64("commit_count", ev.PushData.CommitCount))
		}
		events = append(events, domain.NormalizedEvent{
			ExternalProjectID: ev.ProjectID,
			RawAction:         ev.ActionName,
			Action:            actionByName[ev.ActionName],
			CreatedAt:         ev.CreatedAt,
		})
	}

	return events, totalPages, nil
}

// FetchProjectDetail resolves a project by id. Projects GitLab does not
// disclose to us resolve to (nil, nil).
func (c *Client) FetchProjectDetail(ctx context.Context, externalProjectID int64) (*domain.ProjectDetail, error) {
	url := fmt.Sprintf("%s/projects/%d", c.baseURL, externalProjectID)
	c.logger.Debug("fetching project detail from gitlab", zap.String("url", url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting gitlab project %d: %w", externalProjectID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusForbidden {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gitlab returned %s for project %d", resp.Status, externalProjectID)
	}

	var project apiProject
	if err := json.NewDecoder(resp.Body).Decode(&project); err != nil {
		return nil, fmt.Errorf("decoding gitlab project %d: %w", externalProjectID, err)
	}

	return &domain.ProjectDetail{
		ExternalID: project.ID,
		Name:       project.NameWithNamespace,
		URL:        project.WebURL,
		Visibility: project.Visibility,
	}, nil
}

func headerInt(header http.Header, name string) (int, error) {
	value := header.Get(name)
	if value == "" {
		return 0, fmt.Errorf("no %s header in gitlab response", name)
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s header %q is not a number", name, value)
	}
	return parsed, nil
}

// apiEvent is the wire shape of one entry from GET /users/{id}/events
type apiEvent struct {
	ProjectID  int64     `json:"project_id"`
	ActionName string    `json:"action_name"`
	CreatedAt  string    `json:"created_at"`
	PushData   *pushData `json:"push_data"`
}

type pushData struct {
	CommitCount int64 `json:"commit_count"`
}

// apiProject is the wire shape of GET /projects/{id}
type apiProject struct {
	ID                int64  `json:"id"`
	NameWithNamespace string `json:"name_with_namespace"`
	WebURL            string `json:"web_url"`
	Visibility        string `json:"visibility"`
}
