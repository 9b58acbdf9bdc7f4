// Package client is the Go SDK for the pest-control compliance registry.
//
// It wraps the HTTP API: exchanging a principal's API key for a caller
// token, registering and updating facilities, registering technicians,
// checking verification, and reading the audit ledger.
//
// # Connecting
//
//	c, err := client.New("https://registry.example.com",
//	    client.WithCredentials("acme-pest", os.Getenv("PEST_API_KEY")),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// The caller token is fetched on first use and refreshed shortly before it
// expires. WithBearerToken attaches a pre-obtained token instead.
//
// # Errors
//
// Registry failures are returned as *APIError. Use errors.Is with
// ErrNotFound, ErrForbidden or ErrAccountBound to branch on the result code:
//
//	err := c.UpdateFacility(ctx, 1, details)
//	if errors.Is(err, client.ErrForbidden) {
//	    // caller does not own facility 1
//	}
//
// Reads of an unknown id return (nil, nil), not ErrNotFound.
package client
