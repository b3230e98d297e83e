package okta

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Okta paginates collection endpoints with a cursor embedded in the Link
// response header (rel="next"). The Pager walks those pages lazily; its
// cursor always points at the next unfetched page, so a transient failure
// on one page never invalidates pages already delivered and iteration can
// be restarted from Cursor().

type Pager struct {
	c      *Client
	cursor string
	items  []json.RawMessage
	err    error
	done   bool
}

// Pages starts paginating a collection endpoint, e.g. Pages("/users", nil).
func (c *Client) Pages(path string, query url.Values) (*Pager, error) {
	u, err := c.endpoint(path, query)
	if err != nil {
		return nil, err
	}
	return &Pager{c: c, cursor: u}, nil
}

// PagesFrom resumes pagination from a cursor obtained from Pager.Cursor.
func (c *Client) PagesFrom(cursor string) *Pager {
	return &Pager{c: c, cursor: cursor}
}

// Next fetches the next page. It returns false when the collection is
// exhausted or an error occurred; check Err afterwards.
func (p *Pager) Next(ctx context.Context) bool {
	if p.done || p.err != nil {
		return false
	}
	if p.cursor == "" {
		p.done = true
		return false
	}

	var page pageResult
	if err := p.c.doURL(ctx, http.MethodGet, p.cursor, nil, &page); err != nil {
		// Leave the cursor on the failed page so the caller can resume.
		p.err = err
		return false
	}

	p.items = page.Items
	p.cursor = page.next
	return true
}

// Items returns the raw objects of the page fetched by the last Next call.
func (p *Pager) Items() []json.RawMessage {
	return p.items
}

// Cursor returns the URL of the next unfetched page, or "" when exhausted.
func (p *Pager) Cursor() string {
	return p.cursor
}

func (p *Pager) Err() error {
	return p.err
}

// DecodeItems unmarshals a page of raw objects into typed values.
func DecodeItems[T any](items []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(items))
	for _, raw := range items {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decoding page item: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}

// CollectAll drains a pager into typed values. Use sparingly; large orgs
// can return tens of thousands of objects.
func CollectAll[T any](ctx context.Context, p *Pager) ([]T, error) {
	var all []T
	for p.Next(ctx) {
		batch, err := DecodeItems[T](p.Items())
		if err != nil {
			return all, err
		}
		all = append(all, batch...)
	}
	if err := p.Err(); err != nil {
		return all, err
	}
	return all, nil
}

type linkPage interface {
	setLinks(http.Header)
}

type pageResult struct {
	Items []json.RawMessage
	next  string
}

func (p *pageResult) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &p.Items)
}

func (p *pageResult) setLinks(h http.Header) {
	p.next = nextLink(h)
}

// nextLink extracts the rel="next" URL from Link headers.
func nextLink(h http.Header) string {
	for _, value := range h.Values("Link") {
		for _, link := range strings.Split(value, ",") {
			parts := strings.Split(link, ";")
			if len(parts) < 2 {
				continue
			}
			target := strings.Trim(strings.TrimSpace(parts[0]), "<>")
			for _, attr := range parts[1:] {
				if strings.TrimSpace(attr) == `rel="next"` {
					return target
				}
			}
		}
	}
	return ""
}
