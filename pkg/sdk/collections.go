package vecrag

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// ListCollections returns every collection on the server.
func (c *Client) ListCollections(ctx context.Context) (out []CollectionInfo, err error) {
	start := time.Now()
	defer func() { c.obs.observe("list_collections", start, err) }()

	var resp collectionList
	if _, err = c.doJSON(ctx, http.MethodGet, "/collections", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Collections == nil {
		return []CollectionInfo{}, nil
	}
	return resp.Collections, nil
}

// DeleteCollection removes a collection and all its chunks.
// Returns ErrNotFound if it does not exist.
func (c *Client) DeleteCollection(ctx context.Context, name string) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("delete_collection", start, err) }()

	var resp messageBody
	_, err = c.doJSON(ctx, http.MethodDelete, "/collection/"+url.PathEscape(name), nil, &resp)
	return err
}
