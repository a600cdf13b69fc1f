package postgres

import (
	"database/sql"
	"errors"
	"strconv"

	ierr "github.com/streambill/streambill/internal/errors"
)

// itoa shortens positional placeholder construction in list queries.
func itoa(n int) string {
	return strconv.Itoa(n)
}

// asNotFound maps sql.ErrNoRows onto the shared not-found sentinel so
// callers never have to know which store backs a repository.
func asNotFound(err error, entity, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ierr.NewErrorf("%s %s not found", entity, id).
			Mark(ierr.ErrNotFound)
	}
	return err
}
