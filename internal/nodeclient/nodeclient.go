// Package nodeclient implements the async HTTP transport to one
// storage node (spec.md §4.2, §6.1). Every method squashes transport
// and status errors into an option/bool result — the orchestrator
// sees a uniform partial-failure surface and never has to distinguish
// "node down" from "node said no".
//
// Grounded on the method shapes of
// internal/repository/objectstore/{s3,gcs}_object_repository.go
// (Upload/Download/Delete returning a success signal, logged via
// logrus at Debug/Warn), generalized from an AWS/GCS SDK transport to
// the plain HTTP wire protocol this system's own node server exposes.
package nodeclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	putGetTimeout    = 30 * time.Second
	healthDeleteTimeout = 5 * time.Second
)

// Client talks to a single storage node over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a Client bound to one node's base URL (e.g.
// "http://node-2:9090"). The HTTP client is shared but every call
// applies its own context timeout per spec.md §5.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
}

// BaseURL returns the node's base URL, used by the orchestrator to
// populate shard_locations in the manifest.
func (c *Client) BaseURL() string { return c.baseURL }

// Upload implements spec.md §6.1 PUT /store/{shard_id}. Returns true
// on any 2xx response, false on any transport or status error. Never
// raises.
func (c *Client) Upload(ctx context.Context, shardID string, data []byte) bool {
	ctx, cancel := context.WithTimeout(ctx, putGetTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/store/%s", c.baseURL, shardID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		log.Debugf("nodeclient: build PUT request for %s: %v", shardID, err)
		return false
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		log.Debugf("nodeclient: PUT %s failed: %v", url, err)
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return is2xx(resp.StatusCode)
}

// Download implements spec.md §6.1 GET /retrieve/{shard_id}. Returns
// (bytes, true) on 2xx, (nil, false) on 404 or any transport error.
// Never raises.
func (c *Client) Download(ctx context.Context, shardID string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, putGetTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/retrieve/%s", c.baseURL, shardID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.Debugf("nodeclient: build GET request for %s: %v", shardID, err)
		return nil, false
	}

	resp, err := c.http.Do(req)
	if err != nil {
		log.Debugf("nodeclient: GET %s failed: %v", url, err)
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, false
	}
	if !is2xx(resp.StatusCode) {
		log.Debugf("nodeclient: GET %s returned status %d", url, resp.StatusCode)
		return nil, false
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Debugf("nodeclient: reading GET %s body: %v", url, err)
		return nil, false
	}
	return body, true
}

// Delete implements spec.md §6.1 DELETE /delete/{shard_id}. Best
// effort: logs but never raises. true on 2xx or 404 (idempotent
// target, spec.md §8 property 9).
func (c *Client) Delete(ctx context.Context, shardID string) bool {
	ctx, cancel := context.WithTimeout(ctx, healthDeleteTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/delete/%s", c.baseURL, shardID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		log.Warnf("nodeclient: build DELETE request for %s: %v", shardID, err)
		return false
	}

	resp, err := c.http.Do(req)
	if err != nil {
		log.Warnf("nodeclient: DELETE %s failed: %v", url, err)
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return is2xx(resp.StatusCode) || resp.StatusCode == http.StatusNotFound
}

// Health implements spec.md §6.1 GET /health. true iff the node
// answers with 2xx inside the short timeout.
func (c *Client) Health(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, healthDeleteTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return is2xx(resp.StatusCode)
}

func is2xx(status int) bool {
	return status >= 200 && status < 300
}
