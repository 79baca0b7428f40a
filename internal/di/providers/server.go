package providers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/samber/do/v2"

	"github.com/maktabaapp/maktaba-server/internal/api"
	"github.com/maktabaapp/maktaba-server/internal/config"
	"github.com/maktabaapp/maktaba-server/internal/logger"
	"github.com/maktabaapp/maktaba-server/internal/ratelimit"
	"github.com/maktabaapp/maktaba-server/internal/service"
)

// shutdownTimeout bounds how long in-flight requests get to finish.
const shutdownTimeout = 30 * time.Second

// RateLimiterHandle wraps the bulk route rate limiter with Shutdownable.
type RateLimiterHandle struct {
	*ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *RateLimiterHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideBulkRateLimiter provides the per-user limiter for bulk routes.
func ProvideBulkRateLimiter(i do.Injector) (*RateLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return &RateLimiterHandle{KeyedRateLimiter: ratelimit.PerMinute(cfg.Bulk.RatePerMinute)}, nil
}

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server and starts it in the background.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	historyHandle := do.MustInvoke[*HistoryHandle](i)
	limiter := do.MustInvoke[*RateLimiterHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	services := &api.Services{
		Book:     do.MustInvoke[*service.BookService](i),
		Search:   do.MustInvoke[*service.SearchService](i),
		Resolver: do.MustInvoke[*service.ResolverService](i),
		Bulk:     do.MustInvoke[*service.BulkService](i),
		Borrow:   do.MustInvoke[*service.BorrowService](i),
	}

	handler := api.NewServer(services, api.Options{
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		BulkRateLimiter:    limiter.KeyedRateLimiter,
		Health: map[string]api.Pinger{
			"catalog": storeHandle.Store,
			"history": historyHandle.Store,
		},
	}, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv}, nil
}
