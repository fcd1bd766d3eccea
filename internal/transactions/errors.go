package transactions

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// ErrNotFound matches every NotFoundError under errors.Is.
var ErrNotFound = eris.New("not found")

// Entity kinds reported by NotFoundError.
const (
	KindItem       = "Item"
	KindCollection = "Collection"
)

// NotFoundError reports an update or delete aimed at a row that does not exist.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// Is lets errors.Is(err, ErrNotFound) match.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
