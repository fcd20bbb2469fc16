package types

import "errors"

// Collection errors. Callers classify with errors.Is; the wrapped message is
// meant for the user.
var (
	ErrValidation           = errors.New("invalid collection data")
	ErrDuplicate            = errors.New("a collection with this series and title already exists")
	ErrNotFound             = errors.New("collection not found")
	ErrCorruptRow           = errors.New("corrupt collection row")
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrStalePlan            = errors.New("plan no longer matches stored data")
)

// Backup and storage errors.
var (
	ErrFormat      = errors.New("invalid backup")
	ErrPersistence = errors.New("persistence failure")
)

// IsUserError reports whether err is caused by input the user can correct,
// as opposed to a storage or system failure.
func IsUserError(err error) bool {
	for _, target := range []error{
		ErrValidation,
		ErrDuplicate,
		ErrNotFound,
		ErrConfirmationRequired,
		ErrStalePlan,
		ErrFormat,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
