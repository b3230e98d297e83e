package okta

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pagedServer serves /api/v1/users in three pages linked with rel="next"
// cursors the way Okta does.
func pagedServer(t *testing.T, failPage2 *atomic.Bool) *httptest.Server {
	t.Helper()

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/users" {
			http.NotFound(w, r)
			return
		}

		after := r.URL.Query().Get("after")
		switch after {
		case "":
			w.Header().Set("Link", fmt.Sprintf(`<%s/api/v1/users?after=p2>; rel="next"`, srv.URL))
			fmt.Fprint(w, `[{"id":"00u1"},{"id":"00u2"}]`)
		case "p2":
			if failPage2 != nil && failPage2.Load() {
				w.WriteHeader(http.StatusBadRequest)
				fmt.Fprint(w, `{"errorCode":"E0000031","errorSummary":"The request was invalid"}`)
				return
			}
			w.Header().Set("Link", fmt.Sprintf(`<%s/api/v1/users?after=p3>; rel="next"`, srv.URL))
			fmt.Fprint(w, `[{"id":"00u3"}]`)
		case "p3":
			fmt.Fprint(w, `[{"id":"00u4"}]`)
		default:
			http.NotFound(w, r)
		}
	}))
	return srv
}

func TestPagerWalksAllPages(t *testing.T) {
	srv := pagedServer(t, nil)
	defer srv.Close()

	c := testClient(t, srv)
	pager, err := c.Pages("/users", nil)
	require.NoError(t, err)

	users, err := CollectAll[User](context.Background(), pager)
	require.NoError(t, err)

	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	assert.Equal(t, []string{"00u1", "00u2", "00u3", "00u4"}, ids)
	assert.Empty(t, pager.Cursor())
}

func TestPagerResumesFromFailedPage(t *testing.T) {
	var failPage2 atomic.Bool
	failPage2.Store(true)
	srv := pagedServer(t, &failPage2)
	defer srv.Close()

	c := testClient(t, srv)
	pager, err := c.Pages("/users", nil)
	require.NoError(t, err)

	ctx := context.Background()

	// Page one is delivered; page two fails and the cursor stays on it.
	require.True(t, pager.Next(ctx))
	assert.Len(t, pager.Items(), 2)
	require.False(t, pager.Next(ctx))
	require.Error(t, pager.Err())
	cursor := pager.Cursor()
	assert.Contains(t, cursor, "after=p2")

	// Resuming from the cursor picks up where iteration stopped, without
	// refetching page one.
	failPage2.Store(false)
	resumed := c.PagesFrom(cursor)
	users, err := CollectAll[User](ctx, resumed)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "00u3", users[0].ID)
	assert.Equal(t, "00u4", users[1].ID)
}

func TestPagerEmptyCollection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	c := testClient(t, srv)
	pager, err := c.Pages("/groups", nil)
	require.NoError(t, err)

	require.True(t, pager.Next(context.Background()))
	assert.Empty(t, pager.Items())
	require.False(t, pager.Next(context.Background()))
	assert.NoError(t, pager.Err())
}

func TestNextLink(t *testing.T) {
	h := http.Header{}
	assert.Empty(t, nextLink(h))

	h.Add("Link", `<https://example.okta.com/api/v1/users?after=x>; rel="self"`)
	h.Add("Link", `<https://example.okta.com/api/v1/users?after=y>; rel="next"`)
	assert.Equal(t, "https://example.okta.com/api/v1/users?after=y", nextLink(h))

	h = http.Header{}
	h.Add("Link", `<https://a/self>; rel="self", <https://a/next>; rel="next"`)
	assert.Equal(t, "https://a/next", nextLink(h))
}

func TestRateAwareBackoffStretchesToReset(t *testing.T) {
	state := &retryState{waitUntil: time.Now().Add(2 * time.Second)}
	b := &rateAwareBackoff{inner: newConstantBackoff(10 * time.Millisecond), state: state}

	d := b.NextBackOff()
	assert.Greater(t, d, time.Second)

	// The stretch applies once; the next delay falls back to the inner
	// policy.
	assert.Equal(t, 10*time.Millisecond, b.NextBackOff())
}

type constantBackoff struct{ d time.Duration }

func newConstantBackoff(d time.Duration) *constantBackoff { return &constantBackoff{d: d} }
func (b *constantBackoff) NextBackOff() time.Duration     { return b.d }
func (b *constantBackoff) Reset()                         {}
