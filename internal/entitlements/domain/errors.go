package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrProductNotFound means the product id could not be resolved to a
	// known subscription product.
	ErrProductNotFound = errors.New("product not found")

	// ErrReceiptUnavailable means the platform had no receipt data for a
	// purchased or restored transaction.
	ErrReceiptUnavailable = errors.New("receipt data unavailable")

	// ErrRestoreOriginalMissing means a restored transaction lacked the
	// original-transaction reference needed to recover the purchase.
	ErrRestoreOriginalMissing = errors.New("restored transaction missing original reference")

	// ErrOwnerMissing means no authenticated user was available to own the
	// subscription record. Terminal for the attempt, not retried.
	ErrOwnerMissing = errors.New("no authenticated owner for subscription")

	// ErrPurchaseCancelled means the user cancelled the payment.
	ErrPurchaseCancelled = errors.New("purchase cancelled by user")

	// ErrCatalogTimeout means the product catalog fetch timed out and no
	// cached catalog was available.
	ErrCatalogTimeout = errors.New("product catalog fetch timed out")

	// ErrConsumableProduct means a consumable (import credit) product id was
	// handed to the subscription engine, which never processes them.
	ErrConsumableProduct = errors.New("consumable products are not handled by the subscription engine")
)

// PurchaseFailedError wraps a platform failure that is not a user
// cancellation.
type PurchaseFailedError struct {
	Code    string
	Message string
}

func (e *PurchaseFailedError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("purchase failed (%s): %s", e.Code, e.Message)
	}
	return fmt.Sprintf("purchase failed (%s)", e.Code)
}

// NewPurchaseFailedError builds a PurchaseFailedError from platform fields.
func NewPurchaseFailedError(code, message string) *PurchaseFailedError {
	return &PurchaseFailedError{Code: code, Message: message}
}
