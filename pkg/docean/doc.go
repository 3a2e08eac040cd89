// Package docean provides types, interfaces, and helpers for working with the
// DigitalOcean API v2.
//
// # Overview
//
// The docean package defines the domain types (Domain, Droplet), the
// configuration, the classified error type and the interfaces for
// resource-oriented clients. A concrete implementation is provided by the
// doclient package; most consumers construct a client there and use the
// interfaces exposed here.
//
// # Errors
//
// Every failed call returns an *APIError whose Kind tells the caller what to
// do next. errors.Is matches the kind sentinels (ErrNotFound, ErrRateLimited,
// ...) and helpers such as IsNotFound and IsRateLimited wrap the common checks:
//
//	droplet, err := cli.Droplets().Get(ctx, id)
//	switch {
//	case docean.IsNotFound(err):
//	  // gone
//	case docean.IsRateLimited(err):
//	  var apiErr *docean.APIError
//	  errors.As(err, &apiErr)
//	  log.Printf("quota exhausted until %s", apiErr.ResetAt)
//	case err != nil:
//	  return err
//	}
//
// # Rate limits
//
// Client.RateLimit returns the last observed quota window. Config.RateLimitObserver
// receives every new snapshot, which lets several processes share the view of
// one account's quota.
//
// # Logging
//
// Logger is a small structured logging interface; NewZapLogger adapts a
// *zap.Logger to it.
package docean
