package httpx

import (
	"context"
	"net/http"
)

// Doer is the outbound HTTP surface the data services depend on.
//
//go:generate mockgen -package=httpxmock -destination=httpxmock/doer.go -source=doer.go Doer
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}
