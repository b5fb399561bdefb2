package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for callers and for HTTP status mapping.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindInternal   Kind = "internal"
)

// Code identifies the specific business rule that failed.
type Code string

const (
	CodeMissingField      Code = "missing_field"
	CodeInvalidQuantity   Code = "invalid_quantity"
	CodeInvalidReturnDate Code = "invalid_return_date"
	CodeDuplicateRequest  Code = "duplicate_request"
	CodeProductNotFound   Code = "product_not_found"
	CodeOrderNotFound     Code = "order_not_found"
	CodeLineNotFound      Code = "line_not_found"
	CodeBillNotFound      Code = "bill_not_found"
	CodeInsufficientStock Code = "insufficient_stock"
	CodeOverReturn        Code = "over_return"
	CodeInvalidTransition Code = "invalid_transition"
	CodeIncompleteReturn  Code = "incomplete_return"
	CodeInternal          Code = "internal"
)

// Error is a typed business failure. Every rule violation the service
// returns to a caller is one of these; persistence failures are wrapped
// with KindInternal.
type Error struct {
	Kind    Kind
	Code    Code
	Entity  string
	Field   string
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Entity != "" {
		return fmt.Sprintf("%s: %s", e.Entity, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches two *Error values by Code, so callers can test
// errors.Is(err, apperrors.OverReturn("", "")) style sentinels.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func newError(kind Kind, code Code, entity, message string) *Error {
	return &Error{Kind: kind, Code: code, Entity: entity, Message: message}
}

// MissingField reports a required field absent from the request.
func MissingField(field string) *Error {
	e := newError(KindValidation, CodeMissingField, "", field+" is required")
	e.Field = field
	return e
}

// InvalidQuantity reports a non-positive quantity.
func InvalidQuantity(field, message string) *Error {
	e := newError(KindValidation, CodeInvalidQuantity, "", message)
	e.Field = field
	return e
}

// InvalidReturnDate reports a return date before the rental start date.
func InvalidReturnDate(message string) *Error {
	e := newError(KindValidation, CodeInvalidReturnDate, "", message)
	e.Field = "returnedDate"
	return e
}

// DuplicateRequest reports a reused idempotency key.
func DuplicateRequest(key string) *Error {
	e := newError(KindConflict, CodeDuplicateRequest, "order", "idempotency key already used: "+key)
	e.Field = "idempotencyKey"
	return e
}

// ProductNotFound reports a missing product.
func ProductNotFound(id int64) *Error {
	return newError(KindNotFound, CodeProductNotFound, "product", fmt.Sprintf("product not found: %d", id))
}

// OrderNotFound reports a missing order.
func OrderNotFound(id int64) *Error {
	return newError(KindNotFound, CodeOrderNotFound, "order", fmt.Sprintf("order not found: %d", id))
}

// LineNotFound reports a product that is not part of the order's line roster.
func LineNotFound(productID int64) *Error {
	return newError(KindNotFound, CodeLineNotFound, "order_line", fmt.Sprintf("product not part of this order: %d", productID))
}

// BillNotFound reports a missing bill.
func BillNotFound(orderID int64) *Error {
	return newError(KindNotFound, CodeBillNotFound, "bill", fmt.Sprintf("no bill for order: %d", orderID))
}

// InsufficientStock reports a reservation exceeding available stock.
func InsufficientStock(productName string, available int64) *Error {
	return newError(
		KindConflict,
		CodeInsufficientStock,
		"product",
		fmt.Sprintf("insufficient stock for %s, available: %d", productName, available),
	)
}

// OverReturn reports a return request exceeding the line's remaining quantity.
func OverReturn(remaining int64) *Error {
	return newError(
		KindConflict,
		CodeOverReturn,
		"order_line",
		fmt.Sprintf("only %d item(s) left to return for this product", remaining),
	)
}

// InvalidTransition reports a lifecycle call on an order in a terminal state.
func InvalidTransition(from, to string) *Error {
	return newError(
		KindConflict,
		CodeInvalidTransition,
		"order",
		fmt.Sprintf("cannot transition order from %s to %s", from, to),
	)
}

// IncompleteReturn reports a finalize call while quantities are still out.
func IncompleteReturn(remaining int64) *Error {
	return newError(
		KindConflict,
		CodeIncompleteReturn,
		"order",
		fmt.Sprintf("%d item(s) still on rent, return remaining items first", remaining),
	)
}

// Internal wraps an unexpected failure.
func Internal(err error) *Error {
	e := newError(KindInternal, CodeInternal, "", "internal error")
	e.cause = err
	return e
}

// KindOf extracts the Kind from any error, defaulting to KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
