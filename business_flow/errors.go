// Package businessflow contains the use cases behind the promotion and ranking APIs
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Promotion-related errors
	ErrPromotionNotFound      = errors.New("promotion not found")
	ErrInvalidRenderContext   = errors.New("invalid render context")
	ErrInvalidPromotionFormat = errors.New("invalid promotion format")
	ErrInvalidPromotionStatus = errors.New("invalid promotion status")
	ErrInvalidPromotionUUID   = errors.New("invalid promotion UUID")
	ErrMaxItemsOutOfRange     = errors.New("max items out of range")

	// Viewer errors
	ErrInvalidCoordinates = errors.New("latitude must be within [-90, 90] and longitude within [-180, 180]")

	// Plan catalog errors
	ErrPlanCatalogUnavailable = errors.New("plan catalog unavailable")

	// Filter errors
	ErrInvalidPage     = errors.New("page must be at least 1")
	ErrInvalidPageSize = errors.New("page size must be between 1 and 100")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsPromotionNotFound(err error) bool {
	return errors.Is(err, ErrPromotionNotFound)
}

func IsInvalidRenderContext(err error) bool {
	return errors.Is(err, ErrInvalidRenderContext)
}

func IsInvalidPromotionFormat(err error) bool {
	return errors.Is(err, ErrInvalidPromotionFormat)
}

func IsInvalidPromotionStatus(err error) bool {
	return errors.Is(err, ErrInvalidPromotionStatus)
}

func IsInvalidPromotionUUID(err error) bool {
	return errors.Is(err, ErrInvalidPromotionUUID)
}

func IsMaxItemsOutOfRange(err error) bool {
	return errors.Is(err, ErrMaxItemsOutOfRange)
}

func IsInvalidCoordinates(err error) bool {
	return errors.Is(err, ErrInvalidCoordinates)
}

func IsPlanCatalogUnavailable(err error) bool {
	return errors.Is(err, ErrPlanCatalogUnavailable)
}

func IsInvalidPage(err error) bool {
	return errors.Is(err, ErrInvalidPage)
}

func IsInvalidPageSize(err error) bool {
	return errors.Is(err, ErrInvalidPageSize)
}

// IsValidationError reports whether err is caused by bad client input
func IsValidationError(err error) bool {
	return IsInvalidRenderContext(err) ||
		IsInvalidPromotionFormat(err) ||
		IsInvalidPromotionStatus(err) ||
		IsInvalidPromotionUUID(err) ||
		IsMaxItemsOutOfRange(err) ||
		IsInvalidCoordinates(err) ||
		IsInvalidPage(err) ||
		IsInvalidPageSize(err)
}
