package geo

import (
	"context"
	"errors"
	"time"

	"braidsbar/queue-service/internal/models"
)

var (
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrLocationUnavailable = errors.New("location unavailable")
)

// DefaultLocationTimeout bounds how long a tracking lookup waits for a position.
const DefaultLocationTimeout = 8 * time.Second

type LocationProvider interface {
	CurrentPosition(ctx context.Context) (models.Coordinates, error)
}

type LocationProviderFunc func(ctx context.Context) (models.Coordinates, error)

func (f LocationProviderFunc) CurrentPosition(ctx context.Context) (models.Coordinates, error) {
	return f(ctx)
}

// StaticLocation reports a position the caller already knows, such as one sent by a browser.
type StaticLocation models.Coordinates

func (s StaticLocation) CurrentPosition(ctx context.Context) (models.Coordinates, error) {
	coords := models.Coordinates(s)
	if err := ValidateCoordinates(coords); err != nil {
		return models.Coordinates{}, ErrLocationUnavailable
	}
	return coords, nil
}

// DeniedLocation stands in for a client that refused to share its position.
type DeniedLocation struct{}

func (DeniedLocation) CurrentPosition(ctx context.Context) (models.Coordinates, error) {
	return models.Coordinates{}, ErrPermissionDenied
}

// Locate asks provider for a position, giving up after timeout.
func Locate(ctx context.Context, provider LocationProvider, timeout time.Duration) (models.Coordinates, error) {
	if provider == nil {
		return models.Coordinates{}, ErrLocationUnavailable
	}
	if timeout <= 0 {
		timeout = DefaultLocationTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		coords models.Coordinates
		err    error
	}
	done := make(chan result, 1)
	go func() {
		coords, err := provider.CurrentPosition(ctx)
		done <- result{coords: coords, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			if errors.Is(res.err, ErrPermissionDenied) {
				return models.Coordinates{}, ErrPermissionDenied
			}
			return models.Coordinates{}, ErrLocationUnavailable
		}
		return res.coords, nil
	case <-ctx.Done():
		return models.Coordinates{}, ErrLocationUnavailable
	}
}
