package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"braidsbar/queue-service/internal/models"
	"braidsbar/queue-service/internal/store"
)

// SeedCatalogue adds styles and stock that are not present yet. Records that
// already exist are left as they are.
func (s *Service) SeedCatalogue(ctx context.Context, styles []models.Style, inventory []models.InventoryItem) (int, error) {
	added := 0
	for _, style := range styles {
		if _, err := s.AddStyle(ctx, style); err != nil {
			if errors.Is(err, store.ErrDuplicateID) {
				continue
			}
			return added, fmt.Errorf("seed style %q: %w", style.StyleID, err)
		}
		added++
	}
	for _, item := range inventory {
		if _, err := s.AddInventoryItem(ctx, item); err != nil {
			if errors.Is(err, store.ErrDuplicateID) {
				continue
			}
			return added, fmt.Errorf("seed inventory %q: %w", item.ItemID, err)
		}
		added++
	}
	return added, nil
}

func (s *Service) AddStyle(ctx context.Context, style models.Style) (models.Style, error) {
	style.Name = strings.TrimSpace(style.Name)
	if err := s.validate.Struct(style); err != nil {
		return models.Style{}, s.validationError(err)
	}
	return s.store.CreateStyle(ctx, style)
}

// UpdateStyle applies a partial edit. Tickets already issued keep the
// duration they were booked with.
func (s *Service) UpdateStyle(ctx context.Context, styleID string, patch models.StylePatch) (models.Style, error) {
	current, err := s.store.GetStyle(ctx, styleID)
	if err != nil {
		return models.Style{}, err
	}
	if err := s.validate.Struct(patch.Apply(current)); err != nil {
		return models.Style{}, s.validationError(err)
	}
	return s.store.UpdateStyle(ctx, styleID, patch)
}

func (s *Service) GetStyle(ctx context.Context, styleID string) (models.Style, error) {
	return s.store.GetStyle(ctx, styleID)
}

func (s *Service) ListStyles(ctx context.Context, includeHidden bool) ([]models.Style, error) {
	return s.store.ListStyles(ctx, includeHidden)
}

func (s *Service) AddInventoryItem(ctx context.Context, item models.InventoryItem) (models.InventoryItem, error) {
	item.Name = strings.TrimSpace(item.Name)
	if err := s.validate.Struct(item); err != nil {
		return models.InventoryItem{}, s.validationError(err)
	}
	return s.store.CreateInventoryItem(ctx, item)
}

func (s *Service) UpdateInventoryItem(ctx context.Context, itemID string, patch models.InventoryPatch) (models.InventoryItem, error) {
	current, err := s.store.GetInventoryItem(ctx, itemID)
	if err != nil {
		return models.InventoryItem{}, err
	}
	if err := s.validate.Struct(patch.Apply(current)); err != nil {
		return models.InventoryItem{}, s.validationError(err)
	}
	return s.store.UpdateInventoryItem(ctx, itemID, patch)
}

// RestockInventoryItem adjusts stock by delta; stock never drops below zero.
func (s *Service) RestockInventoryItem(ctx context.Context, itemID string, delta int) (models.InventoryItem, error) {
	if delta == 0 {
		return models.InventoryItem{}, fmt.Errorf("%w: delta must be non-zero", ErrValidation)
	}
	return s.store.AdjustStock(ctx, itemID, delta)
}

func (s *Service) GetInventoryItem(ctx context.Context, itemID string) (models.InventoryItem, error) {
	return s.store.GetInventoryItem(ctx, itemID)
}

func (s *Service) ListInventory(ctx context.Context) ([]models.InventoryItem, error) {
	return s.store.ListInventory(ctx)
}
