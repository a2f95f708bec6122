package player

import (
	"fmt"
	"strings"

	"github.com/mcdev12/underline/go/internal/apperr"
)

// UnknownPlayerError is returned when a name matches no player. It unwraps to
// an apperr.NotFoundError and carries close matches for whoever fixes the feed.
type UnknownPlayerError struct {
	Name        string
	Suggestions []string
}

func (e *UnknownPlayerError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("player %q not found", e.Name)
	}
	return fmt.Sprintf("player %q not found (did you mean %s?)", e.Name, strings.Join(e.Suggestions, ", "))
}

func (e *UnknownPlayerError) Unwrap() error {
	return apperr.NotFound("player", e.Name)
}
