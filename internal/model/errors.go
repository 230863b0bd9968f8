package model

import "errors"

// Business errors returned by the service. Storage failures are wrapped and
// surface as internal errors.
var (
	ErrInvalidStatus             = errors.New("invalid draw status")
	ErrResultsAlreadyExist       = errors.New("draw results already exist")
	ErrNoResultsToPublish        = errors.New("no results to publish")
	ErrWalletNotFound            = errors.New("wallet not found")
	ErrInsufficientFunds         = errors.New("insufficient funds")
	ErrDrawNotFound              = errors.New("draw not found")
	ErrReceiptOrPurchaseNotFound = errors.New("receipt or purchase not found")

	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrDrawCodeConflict   = errors.New("draw code already exists")
	ErrDuplicateRequest   = errors.New("duplicate request in flight")
	ErrForbidden          = errors.New("forbidden")
)
