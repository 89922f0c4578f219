// ABOUTME: Status service calls for listing and registering blackbox devices
// ABOUTME: Every call requires an active session

package client

import (
	"context"
	"net/http"
)

// RegisterInput is the body of a device registration
type RegisterInput struct {
	ID   string `json:"uuid"`
	Name string `json:"nickname"`
}

// ListDevices calls GET /blackboxes
func (c *Client) ListDevices(ctx context.Context) ([]Device, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.endpoints.Status+"/blackboxes", nil)
	if err != nil {
		return nil, err
	}
	if err := c.authorize(req); err != nil {
		return nil, err
	}

	var devices []Device
	if err := c.do(ctx, req, &devices); err != nil {
		return nil, err
	}
	if devices == nil {
		devices = []Device{}
	}
	return devices, nil
}

// RegisterDevice calls POST /blackboxes. A 409 surfaces as ErrConflict.
func (c *Client) RegisterDevice(ctx context.Context, id, name string) error {
	req, err := c.newRequest(ctx, http.MethodPost, c.endpoints.Status+"/blackboxes", RegisterInput{ID: id, Name: name})
	if err != nil {
		return err
	}
	if err := c.authorize(req); err != nil {
		return err
	}
	return c.do(ctx, req, nil)
}
