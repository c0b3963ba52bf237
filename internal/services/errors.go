package services

import "errors"

// Configuration errors: programmer mistakes, never silently defaulted.
var (
	ErrUnknownGroupingField = errors.New("unknown grouping field")
	ErrProductGroupRequired = errors.New("grouping must contain the product field")
)

// Business-rule errors: abort the whole operation with no partial effect.
var (
	ErrMoveNotDraft            = errors.New("move is not in draft state")
	ErrMoveImmutable           = errors.New("move is done or cancelled and cannot be modified")
	ErrMoveInClosedPeriod      = errors.New("move date falls inside a closed period")
	ErrPeriodNotBeforeToday    = errors.New("period date must be strictly before today")
	ErrPeriodAlreadyClosed     = errors.New("period is already closed")
	ErrPeriodNotClosed         = errors.New("period is not closed")
	ErrAssignedMoveBeforeClose = errors.New("an assigned move predates the period boundary")
)
