package dto

// SelectPromotionsRequest asks for the promotions to render in one slot.
// The upper bound of MaxItems is the configured ALLOCATION_MAX_ITEMS_LIMIT, enforced by the flow.
type SelectPromotionsRequest struct {
	ViewerID string `json:"-"`
	Role     string `json:"-"`

	Context   string   `json:"context" validate:"required,oneof=home sidebar overlay inline_list"`
	Formats   []string `json:"formats,omitempty" validate:"omitempty,dive,oneof=horizontal card_vertical sticky_bottom inline mini_badge"`
	SectorID  *uint    `json:"sector_id,omitempty" validate:"omitempty,gt=0"`
	Latitude  *float64 `json:"latitude,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude,omitempty" validate:"omitempty,gte=-180,lte=180"`
	Dismissed []string `json:"dismissed,omitempty" validate:"omitempty,dive,uuid"`
	MaxItems  int      `json:"max_items,omitempty" validate:"omitempty,gte=1"`
}

// BusinessSummaryDTO is the public face of a business attached to a promotion or pick
type BusinessSummaryDTO struct {
	UUID       string   `json:"uuid"`
	Name       string   `json:"name"`
	LiveStatus string   `json:"live_status"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
}

// PromotionItemDTO is one selected promotion
type PromotionItemDTO struct {
	UUID           string              `json:"uuid"`
	Title          string              `json:"title"`
	ImageURL       *string             `json:"image_url,omitempty"`
	CallToAction   *string             `json:"call_to_action,omitempty"`
	LinkURL        *string             `json:"link_url,omitempty"`
	Kind           string              `json:"kind"`
	Subtype        string              `json:"subtype"`
	Position       string              `json:"position"`
	Format         string              `json:"format"`
	Score          float64             `json:"score"`
	LinkedBusiness *BusinessSummaryDTO `json:"linked_business,omitempty"`
}

// SelectPromotionsResponse is the ordered selection for a slot
type SelectPromotionsResponse struct {
	Message          string             `json:"message"`
	Items            []PromotionItemDTO `json:"items"`
	GlobalCooldown   bool               `json:"global_cooldown"`
	ExposureRecorded bool               `json:"exposure_recorded"`
	Excluded         map[string]int     `json:"excluded,omitempty"`
}

// RecordClickResponse acknowledges a click
type RecordClickResponse struct {
	Message string `json:"message"`
	UUID    string `json:"uuid"`
}

// UpdatePromotionStatusRequest moves a promotion between active, paused and scheduled
type UpdatePromotionStatusRequest struct {
	UUID   string `json:"-"`
	Status string `json:"status" validate:"required,oneof=active paused scheduled"`
}

// UpdatePromotionStatusResponse confirms the new status
type UpdatePromotionStatusResponse struct {
	Message string `json:"message"`
	UUID    string `json:"uuid"`
	Status  string `json:"status"`
}

// PromotionReport is an in-memory performance report ready to be streamed
type PromotionReport struct {
	Filename    string
	ContentType string
	Content     []byte
}
