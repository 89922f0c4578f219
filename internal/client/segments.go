// ABOUTME: Metadata and signing service calls for recorded segments
// ABOUTME: Lists a day's segments and resolves time-limited playback URLs

package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"

	"golang.org/x/sync/errgroup"
)

// fallbackConcurrency bounds per-key signing when the batch endpoint is missing
const fallbackConcurrency = 4

type signRequest struct {
	ObjectKey string `json:"object_key"`
}

type signResponse struct {
	SignedURL string `json:"signed_url"`
}

type batchSignRequest struct {
	ObjectKeys []string `json:"object_keys"`
}

type batchSignResponse struct {
	SignedURLs []string `json:"signed_urls"`
}

// ListSegments calls GET /metadata for one device and calendar day, sorted by capture time
func (c *Client) ListSegments(ctx context.Context, deviceID string, day Day) ([]Segment, error) {
	q := url.Values{}
	q.Set("blackboxId", deviceID)
	q.Set("date", day.Boundary())

	req, err := c.newRequest(ctx, http.MethodGet, c.endpoints.Status+"/metadata?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if err := c.authorize(req); err != nil {
		return nil, err
	}

	var segments []Segment
	if err := c.do(ctx, req, &segments); err != nil {
		return nil, err
	}
	if segments == nil {
		segments = []Segment{}
	}
	SortSegments(segments)
	return segments, nil
}

// SortSegments orders segments by capture time, keeping server order for ties
func SortSegments(segments []Segment) {
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].RecordedAt.Before(segments[j].RecordedAt)
	})
}

// SignURL calls POST /url and returns a playback URL for one object key
func (c *Client) SignURL(ctx context.Context, objectKey string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodPost, c.endpoints.Play+"/url", signRequest{ObjectKey: objectKey})
	if err != nil {
		return "", err
	}
	if err := c.authorize(req); err != nil {
		return "", err
	}

	var resp signResponse
	if err := c.do(ctx, req, &resp); err != nil {
		return "", err
	}
	if resp.SignedURL == "" {
		return "", fmt.Errorf("play service returned no signed_url for %s", objectKey)
	}
	return resp.SignedURL, nil
}

// SignURLs calls POST /get-urls for a whole day's keys in one request.
// When the play service has no batch endpoint, keys are signed one by one.
func (c *Client) SignURLs(ctx context.Context, objectKeys []string) (map[string]string, error) {
	if len(objectKeys) == 0 {
		return map[string]string{}, nil
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.endpoints.Play+"/get-urls", batchSignRequest{ObjectKeys: objectKeys})
	if err != nil {
		return nil, err
	}
	if err := c.authorize(req); err != nil {
		return nil, err
	}

	var resp batchSignResponse
	err = c.do(ctx, req, &resp)
	if isMissingEndpoint(err) {
		return c.signEach(ctx, objectKeys)
	}
	if err != nil {
		return nil, err
	}
	if len(resp.SignedURLs) != len(objectKeys) {
		return nil, fmt.Errorf("play service returned %d urls for %d keys", len(resp.SignedURLs), len(objectKeys))
	}

	urls := make(map[string]string, len(objectKeys))
	for i, key := range objectKeys {
		urls[key] = resp.SignedURLs[i]
	}
	return urls, nil
}

func (c *Client) signEach(ctx context.Context, objectKeys []string) (map[string]string, error) {
	signed := make([]string, len(objectKeys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fallbackConcurrency)
	for i, key := range objectKeys {
		g.Go(func() error {
			u, err := c.SignURL(gctx, key)
			if err != nil {
				return err
			}
			signed[i] = u
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	urls := make(map[string]string, len(objectKeys))
	for i, key := range objectKeys {
		urls[key] = signed[i]
	}
	return urls, nil
}

func isMissingEndpoint(err error) bool {
	var rejected *RejectedError
	if !errors.As(err, &rejected) {
		return false
	}
	return rejected.StatusCode == http.StatusNotFound || rejected.StatusCode == http.StatusMethodNotAllowed
}
