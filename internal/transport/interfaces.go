package transport

import "context"

//go:generate mockgen -source=interfaces.go -destination=../mock/mock_transport.go -package=mock

// Fetcher downloads a single blob. Implementations retry transient server
// errors internally; the returned error is already final and can be
// classified with Classify. Cancelling ctx aborts the fetch, including any
// in-flight retry.
type Fetcher interface {
	FetchBlob(ctx context.Context, url string) ([]byte, error)
}
