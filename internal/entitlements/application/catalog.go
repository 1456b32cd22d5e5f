package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/plumeapp/plume/internal/entitlements/domain"
	"github.com/sony/gobreaker/v2"
)

// DefaultCatalogTimeout bounds a single catalog fetch, after which cached
// data is used if present.
const DefaultCatalogTimeout = 10 * time.Second

// CatalogService fetches product descriptors from the platform with a fixed
// timeout, a circuit breaker, and a last-good cache fallback.
type CatalogService struct {
	fetcher domain.ProductFetcher
	breaker *gobreaker.CircuitBreaker[[]domain.ProductDescriptor]
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.RWMutex
	cached []domain.ProductDescriptor
}

// NewCatalogService creates the catalog service.
func NewCatalogService(fetcher domain.ProductFetcher, timeout time.Duration, logger *slog.Logger) *CatalogService {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultCatalogTimeout
	}

	settings := gobreaker.Settings{
		Name:     "store-catalog",
		Interval: 30 * time.Second,
		Timeout:  60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &CatalogService{
		fetcher: fetcher,
		breaker: gobreaker.NewCircuitBreaker[[]domain.ProductDescriptor](settings),
		timeout: timeout,
		logger:  logger,
	}
}

// Products fetches descriptors for the given product ids. On fetch failure
// the cached catalog is returned when available; a timeout with no cache
// surfaces ErrCatalogTimeout.
func (s *CatalogService) Products(ctx context.Context, ids []string) ([]domain.ProductDescriptor, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	products, err := s.breaker.Execute(func() ([]domain.ProductDescriptor, error) {
		return s.fetcher.FetchProducts(fetchCtx, ids)
	})
	if err != nil {
		s.mu.RLock()
		cached := s.cached
		s.mu.RUnlock()

		if cached != nil {
			s.logger.Warn("catalog fetch failed, serving cached products", "error", err)
			return cached, nil
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.ErrCatalogTimeout
		}
		return nil, err
	}

	s.mu.Lock()
	s.cached = products
	s.mu.Unlock()
	return products, nil
}

// Product resolves a single product id.
func (s *CatalogService) Product(ctx context.Context, productID string) (*domain.ProductDescriptor, error) {
	products, err := s.Products(ctx, []string{productID})
	if err != nil {
		return nil, err
	}
	for i := range products {
		if products[i].ID == productID {
			return &products[i], nil
		}
	}
	return nil, domain.ErrProductNotFound
}
