package utils

import (
	"time"
)

type contextKey string

// Request-scoped context keys set by handlers
const (
	RequestIDKey contextKey = "request_id"
	UserAgentKey contextKey = "user_agent"
	IPAddressKey contextKey = "ip_address"
	EndpointKey  contextKey = "endpoint"
	TimeoutKey   contextKey = "timeout"
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Allocation constants
const (
	// GlobalExposureCooldown suppresses stacked interstitial promotions for a viewer (7 minutes)
	GlobalExposureCooldown = 420 * time.Second

	// DefaultMaxBannerItems is used when a request does not ask for a specific slot size
	DefaultMaxBannerItems = 3

	// DefaultVisibilityRadiusMeters applies to businesses whose plan is unknown
	DefaultVisibilityRadiusMeters = 5000.0

	// PlatformCampaignBaseScore is the plan component for campaigns not linked to a business
	PlatformCampaignBaseScore = 250.0
)

// Cache keys (prefixed with CacheConfig.RedisPrefix)
const (
	ExposureCacheKeyPrefix = "exposure:"
)

// Viewer roles
const (
	ViewerRoleGuest         = "guest"
	ViewerRoleCustomer      = "customer"
	ViewerRoleBusinessOwner = "business_owner"
	ViewerRoleAdmin         = "admin"
)
