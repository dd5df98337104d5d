package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/GlebRadaev/spinearn/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

var ErrInvalidBody = errors.New("invalid request body")

// DecodeJSON reads the request body into dst and checks its validate tags.
// Failures wrap domain.ErrValidation.
func DecodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrValidation, ErrInvalidBody)
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: field %s failed on %s", domain.ErrValidation, verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	return nil
}

// PageFromQuery reads page and limit query parameters. Missing or malformed
// values fall back to the defaults.
func PageFromQuery(r *http.Request) domain.PageRequest {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return domain.PageRequest{Page: page, Limit: limit}.Normalize()
}

// IDParam parses a positive integer path value.
func IDParam(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad id %q", domain.ErrValidation, raw)
	}
	return id, nil
}
