// Package di provides dependency injection configuration for the catalog server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/maktabaapp/maktaba-server/internal/config"
	"github.com/maktabaapp/maktaba-server/internal/di/providers"
	"github.com/maktabaapp/maktaba-server/internal/dto"
	"github.com/maktabaapp/maktaba-server/internal/logger"
	"github.com/maktabaapp/maktaba-server/internal/service"
	"github.com/maktabaapp/maktaba-server/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	provideCatalog(injector)

	// Server
	do.Provide(injector, providers.ProvideBulkRateLimiter)
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// NewToolContainer creates a container around an already loaded config and
// logger for command-line tools. The HTTP server is not registered.
func NewToolContainer(cfg *config.Config, log *logger.Logger) *do.RootScope {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, log)

	provideCatalog(injector)

	return injector
}

func provideCatalog(injector do.Injector) {
	// Database layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideHistory)

	// Business services
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvideEnricher)
	do.Provide(injector, providers.ProvideResolverService)
	do.Provide(injector, providers.ProvideBookService)
	do.Provide(injector, providers.ProvideSearchService)
	do.Provide(injector, providers.ProvideBulkService)
	do.Provide(injector, providers.ProvideBorrowService)
}

// Bootstrap initializes all services and starts the HTTP server.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)

	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.HistoryHandle](injector); err != nil {
		return err
	}

	_ = do.MustInvoke[*validation.Validator](injector)
	_ = do.MustInvoke[*dto.Enricher](injector)
	_ = do.MustInvoke[*service.ResolverService](injector)
	_ = do.MustInvoke[*service.BookService](injector)
	_ = do.MustInvoke[*service.SearchService](injector)
	_ = do.MustInvoke[*service.BulkService](injector)
	_ = do.MustInvoke[*service.BorrowService](injector)

	// Server
	_ = do.MustInvoke[*providers.RateLimiterHandle](injector)
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
