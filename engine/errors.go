package engine

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/JeanCaOLO/crossdoking/domain"
)

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Errorf(domain.ErrNotFound, format, args...)
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
