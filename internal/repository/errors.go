package repository

import "errors"

// ErrNotFound is returned when a requested record is not found in the repository.
// This abstracts away the underlying storage implementation (SQL, NoSQL, etc.)
// from the service layer.
var ErrNotFound = errors.New("record not found")

// notFoundOr maps a driver miss (sql.ErrNoRows) onto ErrNotFound; other
// errors pass through unchanged.
func notFoundOr(err error, miss error) error {
	if errors.Is(err, miss) {
		return ErrNotFound
	}
	return err
}
