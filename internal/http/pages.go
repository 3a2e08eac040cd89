package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/fivetwenty-io/docean/pkg/docean"
)

// Page is one decoded page of a list endpoint.
type Page[T any] struct {
	Items []T
	Links docean.Links
	Meta  docean.Meta
	// Response is the executor's result for this page: headers, attempts and request ID.
	Response *Response
}

// DecodePage decodes a list body whose items live under itemsKey. A body
// without links is treated as the last page.
func DecodePage[T any](resp *Response, itemsKey string) (*Page[T], error) {
	var envelope map[string]json.RawMessage

	err := DecodeJSON(resp, &envelope)
	if err != nil {
		return nil, err
	}

	page := &Page[T]{Response: resp}

	decode := func(key string, target interface{}) error {
		raw, ok := envelope[key]
		if !ok || string(raw) == "null" {
			return nil
		}

		err := json.Unmarshal(raw, target)
		if err != nil {
			return &docean.APIError{
				Kind:       docean.KindDecode,
				StatusCode: resp.StatusCode,
				RawBody:    resp.Body,
				RequestID:  resp.RequestID,
				Err:        fmt.Errorf("invalid %q: %w", key, err),
			}
		}

		return nil
	}

	err = decode(itemsKey, &page.Items)
	if err != nil {
		return nil, err
	}

	err = decode("links", &page.Links)
	if err != nil {
		return nil, err
	}

	err = decode("meta", &page.Meta)
	if err != nil {
		return nil, err
	}

	return page, nil
}

// PageIterator walks a list endpoint page by page, following the provider's
// next-page cursor. Each page fetch goes through the client's executor.
// NextPage yields whole pages; HasNext and Next flatten them into items.
type PageIterator[T any] struct {
	ctx      context.Context
	client   *Client
	itemsKey string

	next    *Request
	visited map[string]bool
	items   []T
	index   int
	err     error
	fetched int
}

// Pages starts a walk at req. The request is copied; the caller's value is
// never modified.
func Pages[T any](ctx context.Context, client *Client, req *Request, itemsKey string) *PageIterator[T] {
	return &PageIterator[T]{
		ctx:      ctx,
		client:   client,
		itemsKey: itemsKey,
		next:     req.clone(),
		visited:  make(map[string]bool),
	}
}

// NextPage fetches the next page, including pages without items. It returns
// docean.ErrNoMorePages after the last page and the error that ended the walk
// once one occurred. Items still buffered for Next are discarded.
func (it *PageIterator[T]) NextPage() (*Page[T], error) {
	if it.next == nil {
		if it.err != nil {
			return nil, it.err
		}

		return nil, docean.ErrNoMorePages
	}

	page, err := it.fetch()
	if err != nil {
		it.err = err

		return nil, err
	}

	it.items = page.Items
	it.index = 0

	return page, nil
}

// HasNext reports whether Next would yield an item, fetching further pages
// while the current one is exhausted. It returns false after an error; see Err.
func (it *PageIterator[T]) HasNext() bool {
	for it.index >= len(it.items) {
		if it.next == nil {
			return false
		}

		_, err := it.NextPage()
		if err != nil {
			return false
		}
	}

	return true
}

// Next returns the next item.
func (it *PageIterator[T]) Next() (T, error) {
	var zero T

	if !it.HasNext() {
		if it.err != nil {
			return zero, it.err
		}

		return zero, docean.ErrNoMorePages
	}

	item := it.items[it.index]
	it.index++

	return item, nil
}

// Err returns the error that ended the walk, if any.
func (it *PageIterator[T]) Err() error {
	return it.err
}

// PageCount returns the number of pages fetched so far.
func (it *PageIterator[T]) PageCount() int {
	return it.fetched
}

// ForEach calls fn for every remaining item, stopping at the first error.
func (it *PageIterator[T]) ForEach(fn func(T) error) error {
	for it.HasNext() {
		item, err := it.Next()
		if err != nil {
			return err
		}

		err = fn(item)
		if err != nil {
			return err
		}
	}

	return it.err
}

// All collects every remaining item. Items gathered before a failure are
// returned with the error.
func (it *PageIterator[T]) All() ([]T, error) {
	var all []T

	err := it.ForEach(func(item T) error {
		all = append(all, item)

		return nil
	})

	return all, err
}

// fetch requests the pending page. A repeated or unparsable cursor does not
// fail the page just fetched: it ends the walk and is reported after that page.
func (it *PageIterator[T]) fetch() (*Page[T], error) {
	req := it.next
	it.next = nil
	it.visited[canonicalQuery(req.Query)] = true

	resp, err := it.client.Do(it.ctx, req)
	if err != nil {
		return nil, err
	}

	page, err := DecodePage[T](resp, it.itemsKey)
	if err != nil {
		return nil, err
	}

	it.fetched++

	nextURL := page.Links.NextURL()
	if nextURL == "" {
		return page, nil
	}

	next, err := nextRequest(req, nextURL)
	if err != nil {
		it.err = &docean.APIError{
			Kind:       docean.KindDecode,
			StatusCode: resp.StatusCode,
			RequestID:  resp.RequestID,
			Err:        err,
		}

		return page, nil
	}

	if it.visited[canonicalQuery(next.Query)] {
		it.err = fmt.Errorf("%w: %s", docean.ErrPaginationLoop, nextURL)

		return page, nil
	}

	it.next = next

	return page, nil
}

// nextRequest derives the request for a next-page cursor: the original path
// and query with the cursor's parameters overriding.
func nextRequest(current *Request, cursor string) (*Request, error) {
	parsed, err := url.Parse(cursor)
	if err != nil {
		return nil, fmt.Errorf("invalid next page link %q: %w", cursor, err)
	}

	next := current.clone()
	next.Query = MergeQuery(current.Query, ParseQuery(parsed.RawQuery))

	return next, nil
}
