package repository

import (
	"database/sql"
	"errors"
)

// oneOrNone normalizes single-row lookups. The Find* methods on the agent,
// claim, and user repositories report a missing row as (nil, nil), since an
// unknown agent id, an expired or consumed claim token, and a stale session
// hash are all ordinary outcomes for their callers.
func oneOrNone[T any](result *T, err error) (*T, error) {
	switch {
	case err == nil:
		return result, nil
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	default:
		return nil, err
	}
}
