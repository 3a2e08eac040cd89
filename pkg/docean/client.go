package docean

import (
	"context"
)

// Client is the entry point to the resource clients.
type Client interface {
	Domains() DomainsClient
	Droplets() DropletsClient

	// RateLimit returns the last observed quota window.
	RateLimit() RateLimit
	// SetToken replaces the bearer token used by subsequent requests.
	SetToken(token string)
}

// DomainsClient manages DNS domains.
type DomainsClient interface {
	Create(ctx context.Context, request *DomainCreateRequest) (*Domain, error)
	Get(ctx context.Context, name string) (*Domain, error)
	List(ctx context.Context, opts *ListOptions) (*DomainsList, error)
	ListAll(ctx context.Context, opts *ListOptions) ([]Domain, error)
	Delete(ctx context.Context, name string) error
}

// DropletsClient manages droplets.
type DropletsClient interface {
	Create(ctx context.Context, request *DropletCreateRequest) (*Droplet, error)
	Get(ctx context.Context, id int) (*Droplet, error)
	List(ctx context.Context, opts *ListOptions) (*DropletsList, error)
	ListAll(ctx context.Context, opts *ListOptions) ([]Droplet, error)
	Delete(ctx context.Context, id int) error
}
