package core

import "errors"

var (
	// ErrNoRateAvailable means the rate table was never successfully
	// populated. Fatal to any non-base-currency conversion until a refresh
	// succeeds.
	ErrNoRateAvailable = errors.New("no exchange rates available")

	// ErrNoExchangeRate means the table is populated but the requested pair
	// is absent. The affected transaction must not be persisted.
	ErrNoExchangeRate = errors.New("no exchange rate for currency pair")

	ErrNotFound          = errors.New("transaction not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidCategory   = errors.New("category is not in the user's set")
	ErrNoCategories      = errors.New("no categories defined")
	ErrDuplicateTemplate = errors.New("template already exists for this description")
	ErrTemplateNotFound  = errors.New("template not found")
	ErrCategoryNotExists = errors.New("category does not exist")
	ErrCategoryExists    = errors.New("category already exists")
	ErrRenameConflict    = errors.New("category already present in transaction history")
)
