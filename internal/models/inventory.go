package models

type InventoryItem struct {
	ItemID     string  `json:"item_id" yaml:"id"`
	Name       string  `json:"name" yaml:"name" validate:"required"`
	Price      float64 `json:"price" yaml:"price" validate:"gte=0"`
	StockCount int     `json:"stock_count" yaml:"stock_count" validate:"gte=0"`
	Color      string  `json:"color,omitempty" yaml:"color"`
	Length     string  `json:"length,omitempty" yaml:"length"`
	Image      string  `json:"image,omitempty" yaml:"image"`
}

type InventoryPatch struct {
	Name       *string  `json:"name,omitempty"`
	Price      *float64 `json:"price,omitempty"`
	StockCount *int     `json:"stock_count,omitempty"`
	Color      *string  `json:"color,omitempty"`
	Length     *string  `json:"length,omitempty"`
	Image      *string  `json:"image,omitempty"`
}

func (p InventoryPatch) Apply(item InventoryItem) InventoryItem {
	if p.Name != nil {
		item.Name = *p.Name
	}
	if p.Price != nil {
		item.Price = *p.Price
	}
	if p.StockCount != nil {
		item.StockCount = *p.StockCount
	}
	if p.Color != nil {
		item.Color = *p.Color
	}
	if p.Length != nil {
		item.Length = *p.Length
	}
	if p.Image != nil {
		item.Image = *p.Image
	}
	return item
}
