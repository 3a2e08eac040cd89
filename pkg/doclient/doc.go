// Package doclient provides the primary entry point for constructing a
// DigitalOcean API v2 client that implements the docean.Client interface.
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//	  "os"
//
//	  "github.com/fivetwenty-io/docean/pkg/docean"
//	  "github.com/fivetwenty-io/docean/pkg/doclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  cli, err := doclient.NewWithToken(ctx, os.Getenv("DIGITALOCEAN_TOKEN"))
//	  if err != nil { log.Fatal(err) }
//
//	  domains, err := cli.Domains().ListAll(ctx, nil)
//	  if err != nil { log.Fatal(err) }
//	  _ = domains
//	}
//
// # Rate limits and retries
//
// Every client tracks the RateLimit-* headers of the responses it receives and
// waits for the window to reset before sending a request it knows would be
// rejected. Config.RateLimitMaxWait bounds that wait and Config.RateLimitPolicy
// selects failing fast instead. 429 responses are always retried after the
// advertised reset; server errors and network failures are retried only for
// idempotent requests (GET, PUT, DELETE).
package doclient
