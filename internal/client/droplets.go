package client

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fivetwenty-io/docean/internal/constants"
	http_internal "github.com/fivetwenty-io/docean/internal/http"
	"github.com/fivetwenty-io/docean/pkg/docean"
)

// DropletsClient implements the docean.DropletsClient interface.
type DropletsClient struct {
	httpClient *http_internal.Client
}

// NewDropletsClient creates a new DropletsClient.
func NewDropletsClient(httpClient *http_internal.Client) *DropletsClient {
	return &DropletsClient{
		httpClient: httpClient,
	}
}

type dropletRoot struct {
	Droplet *docean.Droplet `json:"droplet"`
}

// Create creates a new droplet. Creation is not retried after a server or
// transport error, since the droplet may already exist.
func (c *DropletsClient) Create(ctx context.Context, request *docean.DropletCreateRequest) (*docean.Droplet, error) {
	resp, err := c.httpClient.Post(ctx, constants.APIPathDroplets, request)
	if err != nil {
		return nil, fmt.Errorf("creating droplet: %w", err)
	}

	var root dropletRoot

	err = http_internal.DecodeJSON(resp, &root)
	if err != nil {
		return nil, fmt.Errorf("parsing droplet response: %w", err)
	}

	return root.Droplet, nil
}

// Get retrieves a specific droplet.
func (c *DropletsClient) Get(ctx context.Context, id int) (*docean.Droplet, error) {
	if id <= 0 {
		return nil, constants.ErrInvalidDropletID
	}

	resp, err := c.httpClient.Get(ctx, dropletPath(id), nil)
	if err != nil {
		return nil, fmt.Errorf("getting droplet: %w", err)
	}

	var root dropletRoot

	err = http_internal.DecodeJSON(resp, &root)
	if err != nil {
		return nil, fmt.Errorf("parsing droplet response: %w", err)
	}

	return root.Droplet, nil
}

// List lists one page of droplets.
func (c *DropletsClient) List(ctx context.Context, opts *docean.ListOptions) (*docean.DropletsList, error) {
	resp, err := c.httpClient.Get(ctx, constants.APIPathDroplets, opts.ToQuery())
	if err != nil {
		return nil, fmt.Errorf("listing droplets: %w", err)
	}

	page, err := http_internal.DecodePage[docean.Droplet](resp, "droplets")
	if err != nil {
		return nil, fmt.Errorf("parsing droplets list response: %w", err)
	}

	return &docean.DropletsList{Droplets: page.Items, Links: page.Links, Meta: page.Meta}, nil
}

// ListAll follows the next-page links starting at opts and returns every droplet.
func (c *DropletsClient) ListAll(ctx context.Context, opts *docean.ListOptions) ([]docean.Droplet, error) {
	req := http_internal.NewRequest("GET", constants.APIPathDroplets)
	req.Query = listAllQuery(opts)

	droplets, err := http_internal.Pages[docean.Droplet](ctx, c.httpClient, req, "droplets").All()
	if err != nil {
		return droplets, fmt.Errorf("listing all droplets: %w", err)
	}

	return droplets, nil
}

// Delete deletes a droplet.
func (c *DropletsClient) Delete(ctx context.Context, id int) error {
	if id <= 0 {
		return constants.ErrInvalidDropletID
	}

	_, err := c.httpClient.Delete(ctx, dropletPath(id))
	if err != nil {
		return fmt.Errorf("deleting droplet: %w", err)
	}

	return nil
}

func dropletPath(id int) string {
	return constants.APIPathDroplets + "/" + strconv.Itoa(id)
}
