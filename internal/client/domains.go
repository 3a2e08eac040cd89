package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/fivetwenty-io/docean/internal/constants"
	"github.com/fivetwenty-io/docean/internal/http"
	"github.com/fivetwenty-io/docean/pkg/docean"
)

// DomainsClient implements the docean.DomainsClient interface.
type DomainsClient struct {
	httpClient *http.Client
}

// NewDomainsClient creates a new DomainsClient.
func NewDomainsClient(httpClient *http.Client) *DomainsClient {
	return &DomainsClient{
		httpClient: httpClient,
	}
}

type domainRoot struct {
	Domain *docean.Domain `json:"domain"`
}

// Create creates a new domain.
func (c *DomainsClient) Create(ctx context.Context, request *docean.DomainCreateRequest) (*docean.Domain, error) {
	if request == nil || request.Name == "" {
		return nil, constants.ErrDomainRequired
	}

	resp, err := c.httpClient.Post(ctx, constants.APIPathDomains, request)
	if err != nil {
		return nil, fmt.Errorf("creating domain: %w", err)
	}

	var root domainRoot

	err = http.DecodeJSON(resp, &root)
	if err != nil {
		return nil, fmt.Errorf("parsing domain response: %w", err)
	}

	return root.Domain, nil
}

// Get retrieves a specific domain.
func (c *DomainsClient) Get(ctx context.Context, name string) (*docean.Domain, error) {
	if name == "" {
		return nil, constants.ErrDomainRequired
	}

	resp, err := c.httpClient.Get(ctx, domainPath(name), nil)
	if err != nil {
		return nil, fmt.Errorf("getting domain: %w", err)
	}

	var root domainRoot

	err = http.DecodeJSON(resp, &root)
	if err != nil {
		return nil, fmt.Errorf("parsing domain response: %w", err)
	}

	return root.Domain, nil
}

// List lists one page of domains.
func (c *DomainsClient) List(ctx context.Context, opts *docean.ListOptions) (*docean.DomainsList, error) {
	resp, err := c.httpClient.Get(ctx, constants.APIPathDomains, opts.ToQuery())
	if err != nil {
		return nil, fmt.Errorf("listing domains: %w", err)
	}

	page, err := http.DecodePage[docean.Domain](resp, "domains")
	if err != nil {
		return nil, fmt.Errorf("parsing domains list response: %w", err)
	}

	return &docean.DomainsList{Domains: page.Items, Links: page.Links, Meta: page.Meta}, nil
}

// ListAll follows the next-page links starting at opts and returns every domain.
func (c *DomainsClient) ListAll(ctx context.Context, opts *docean.ListOptions) ([]docean.Domain, error) {
	req := http.NewRequest("GET", constants.APIPathDomains)
	req.Query = listAllQuery(opts)

	domains, err := http.Pages[docean.Domain](ctx, c.httpClient, req, "domains").All()
	if err != nil {
		return domains, fmt.Errorf("listing all domains: %w", err)
	}

	return domains, nil
}

// Delete deletes a domain.
func (c *DomainsClient) Delete(ctx context.Context, name string) error {
	if name == "" {
		return constants.ErrDomainRequired
	}

	_, err := c.httpClient.Delete(ctx, domainPath(name))
	if err != nil {
		return fmt.Errorf("deleting domain: %w", err)
	}

	return nil
}

func domainPath(name string) string {
	return constants.APIPathDomains + "/" + url.PathEscape(name)
}

// listAllQuery uses the largest page size unless the caller chose one.
func listAllQuery(opts *docean.ListOptions) []docean.QueryParam {
	walk := docean.ListOptions{PerPage: constants.MaxPageSize}

	if opts != nil {
		walk.Page = opts.Page
		if opts.PerPage > 0 {
			walk.PerPage = opts.PerPage
		}
	}

	return walk.ToQuery()
}
