package gitlab

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"pollux-backend/internal/gitevent/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(baseURL string) *Client {
	return &Client{
		userID:  "26086452",
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
		logger:  zap.NewNop(),
	}
}

func testWindow() domain.SyncWindow {
	return domain.SyncWindow{
		After:  time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Before: time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC),
	}
}

func eventsJSON(n int, action string) string {
	payload := "["
	for i := 0; i < n; i++ {
		if i > 0 {
			payload += ","
		}
		payload += fmt.Sprintf(`{"project_id":61345567,"action_name":%q,"created_at":"2024-05-0%dT10:00:00.000Z","push_data":{"commit_count":2}}`, action, i%4+1)
	}
	return payload + "]"
}

func TestFetchEventsPagination(t *testing.T) {
	// 31 events across two pages, as the gitlab scenario window returns
	pages := map[int]int{1: 20, 2: 11}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/26086452/events", r.URL.Path)
		assert.Equal(t, "2024-05-01", r.URL.Query().Get("after"))
		assert.Equal(t, "2024-05-05", r.URL.Query().Get("before"))

		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		require.NoError(t, err)

		w.Header().Set("x-total-pages", "2")
		w.Header().Set("x-page", strconv.Itoa(page))
		fmt.Fprint(w, eventsJSON(pages[page], "pushed to"))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	events, err := client.FetchEvents(context.Background(), testWindow())
	require.NoError(t, err)

	assert.Len(t, events, 31)
	assert.Equal(t, "pushed", events[0].Action)
	assert.Equal(t, "pushed to", events[0].RawAction)
	assert.EqualValues(t, 61345567, events[0].ExternalProjectID)
}

func TestFetchEventsSinglePage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-total-pages", "1")
		w.Header().Set("x-page", "1")
		fmt.Fprint(w, eventsJSON(4, "accepted"))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	events, err := client.FetchEvents(context.Background(), testWindow())
	require.NoError(t, err)

	assert.Len(t, events, 4)
	assert.Equal(t, "merged", events[0].Action)
}

func TestFetchEventsLeavesUnknownActionsUnmapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-total-pages", "1")
		w.Header().Set("x-page", "1")
		fmt.Fprint(w, eventsJSON(1, "imported"))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	events, err := client.FetchEvents(context.Background(), testWindow())
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, "imported", events[0].RawAction)
	assert.Empty(t, events[0].Action)
}

func TestFetchEventsAbortsOnUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"401 Unauthorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.FetchEvents(context.Background(), testWindow())
	assert.Error(t, err)
}

func TestFetchEventsRequiresPaginationHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "[]")
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.FetchEvents(context.Background(), testWindow())
	assert.Error(t, err)
}

func TestFetchEventsRejectsPageMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-total-pages", "3")
		w.Header().Set("x-page", "7")
		fmt.Fprint(w, "[]")
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.FetchEvents(context.Background(), testWindow())
	assert.Error(t, err)
}

func TestFetchProjectDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/projects/61345567", r.URL.Path)
		fmt.Fprint(w, `{"id":61345567,"name_with_namespace":"2tefan Projects / Stats / Pollux","web_url":"https://gitlab.com/2tefan-projects/stats/pollux","visibility":"public"}`)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	detail, err := client.FetchProjectDetail(context.Background(), 61345567)
	require.NoError(t, err)
	require.NotNil(t, detail)

	assert.EqualValues(t, 61345567, detail.ExternalID)
	assert.Equal(t, "2tefan Projects / Stats / Pollux", detail.Name)
	assert.Equal(t, "https://gitlab.com/2tefan-projects/stats/pollux", detail.URL)
	assert.True(t, detail.Public())
}

func TestFetchProjectDetailUndisclosed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	detail, err := client.FetchProjectDetail(context.Background(), 404404)
	require.NoError(t, err)
	assert.Nil(t, detail)
}
