package store

import "errors"

var (
	ErrTicketNotFound    = errors.New("ticket not found")
	ErrStyleNotFound     = errors.New("style not found")
	ErrInventoryNotFound = errors.New("inventory item not found")
	ErrBranchNotFound    = errors.New("branch not found")
	ErrInvalidStatus     = errors.New("invalid ticket status")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidStock      = errors.New("stock count cannot be negative")
	ErrDuplicateID       = errors.New("duplicate id")
)
