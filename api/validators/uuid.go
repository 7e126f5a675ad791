package validators

import (
	"github.com/google/uuid"

	pkgerrors "github.com/cartdash/cartdash-backend/pkg/errors"
)

// ParseUUID parses a path or query value, reporting the offending field
// in the validation details.
func ParseUUID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "identifier must be a uuid").
			WithDetails(map[string]any{"field": field})
	}
	return id, nil
}
