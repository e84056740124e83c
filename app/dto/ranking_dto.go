package dto

// RankBusinessesRequest lists businesses ordered by SweetRank
type RankBusinessesRequest struct {
	SectorID         *uint    `query:"sector_id" validate:"omitempty,gt=0"`
	Latitude         *float64 `query:"lat" validate:"omitempty,gte=-90,lte=90"`
	Longitude        *float64 `query:"lng" validate:"omitempty,gte=-180,lte=180"`
	Page             int      `query:"page" validate:"omitempty,gte=1"`
	Limit            int      `query:"limit" validate:"omitempty,gte=1,lte=100"`
	IncludeBreakdown bool     `query:"breakdown"`
}

// ScoreBreakdownDTO exposes the SweetRank components
type ScoreBreakdownDTO struct {
	Proximity  float64 `json:"proximity"`
	Plan       float64 `json:"plan"`
	Reputation float64 `json:"reputation"`
	Activity   float64 `json:"activity"`
	Weighted   float64 `json:"weighted"`
	AdBoost    float64 `json:"ad_boost"`
}

// RankedBusinessDTO is one row of the ranking
type RankedBusinessDTO struct {
	Rank      int                `json:"rank"`
	Business  BusinessSummaryDTO `json:"business"`
	PlanCode  *string            `json:"plan_code,omitempty"`
	Score     float64            `json:"score"`
	Breakdown *ScoreBreakdownDTO `json:"breakdown,omitempty"`
}

// RankBusinessesResponse is a page of the ranking. Truncated is set when the candidate
// cap left matching businesses unranked; Total still counts every match.
type RankBusinessesResponse struct {
	Message    string              `json:"message"`
	Items      []RankedBusinessDTO `json:"items"`
	Pagination PaginationInfo      `json:"pagination"`
	Truncated  bool                `json:"truncated,omitempty"`
}

// PaginationInfo contains pagination metadata
type PaginationInfo struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

// BusinessOfTheDayRequest selects the daily featured business
type BusinessOfTheDayRequest struct {
	SectorID *uint `query:"sector_id" validate:"omitempty,gt=0"`
}

// BusinessOfTheDayResponse is the daily featured business, if any is open
type BusinessOfTheDayResponse struct {
	Message  string              `json:"message"`
	Day      string              `json:"day"`
	Business *BusinessSummaryDTO `json:"business,omitempty"`
}
