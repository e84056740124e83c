package businessflow

import (
	"github.com/dulcemap/dulcemap-api/allocation"
	"github.com/dulcemap/dulcemap-api/app/dto"
	"github.com/dulcemap/dulcemap-api/models"
)

// ClientMetadata holds request information used for logging
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// ToBusinessSummaryDTO converts a business model to its public summary
func ToBusinessSummaryDTO(b *models.Business) *dto.BusinessSummaryDTO {
	if b == nil {
		return nil
	}
	return &dto.BusinessSummaryDTO{
		UUID:       b.UUID.String(),
		Name:       b.Name,
		LiveStatus: string(b.LiveStatus),
		Latitude:   b.Lat,
		Longitude:  b.Lng,
	}
}

// ToPromotionItemDTO converts a scored promotion to its response shape
func ToPromotionItemDTO(s allocation.ScoredItem, businesses map[uint]*models.Business) dto.PromotionItemDTO {
	item := s.Item
	out := dto.PromotionItemDTO{
		UUID:         item.UUID.String(),
		Title:        item.Title,
		ImageURL:     item.ImageURL,
		CallToAction: item.CallToAction,
		LinkURL:      item.LinkURL,
		Kind:         string(item.Kind),
		Subtype:      string(item.Subtype),
		Position:     string(item.Position),
		Format:       string(item.Format),
		Score:        s.Score,
	}
	if item.IsBusinessLinked() {
		out.LinkedBusiness = ToBusinessSummaryDTO(businesses[*item.LinkedBusinessID])
	}
	return out
}

// ToScoreBreakdownDTO exposes the SweetRank components
func ToScoreBreakdownDTO(b allocation.ScoreBreakdown) *dto.ScoreBreakdownDTO {
	return &dto.ScoreBreakdownDTO{
		Proximity:  b.Proximity,
		Plan:       b.Plan,
		Reputation: b.Reputation,
		Activity:   b.Activity,
		Weighted:   b.Weighted,
		AdBoost:    b.AdBoost,
	}
}

// poolFetchLimit asks for one row past the cap so truncation can be detected. Zero means no cap.
func poolFetchLimit(limit int) int {
	if limit <= 0 {
		return 0
	}
	return limit + 1
}

// capPool trims rows fetched with poolFetchLimit back to the cap and reports whether any were dropped.
func capPool[T any](rows []T, limit int) ([]T, bool) {
	if limit <= 0 || len(rows) <= limit {
		return rows, false
	}
	return rows[:limit], true
}
