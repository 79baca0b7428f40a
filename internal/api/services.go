package api

import (
	"context"

	"github.com/maktabaapp/maktaba-server/internal/service"
)

// Services groups the business logic services used by the API server.
type Services struct {
	Book     *service.BookService
	Search   *service.SearchService
	Resolver *service.ResolverService
	Bulk     *service.BulkService
	Borrow   *service.BorrowService
}

// Pinger is a component whose availability /health reports.
type Pinger interface {
	Ping(ctx context.Context) error
}
