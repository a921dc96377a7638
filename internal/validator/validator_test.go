package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniride/uniride-api/internal/apperr"
)

type sample struct {
	Email string `json:"email" validate:"required,email"`
	Day   string `json:"day" validate:"required,weekday"`
	Age   int    `json:"age" validate:"omitempty,min=16"`
}

func TestValidateReportsJSONFieldNames(t *testing.T) {
	v := New()
	require.NoError(t, v.Validate(sample{Email: "a@b.co", Day: "lunes"}))

	err := v.Validate(sample{Email: "nope", Day: "lunes"})
	var ve *apperr.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "email", ve.Field)

	err = v.Validate(sample{Email: "a@b.co", Day: "monday"})
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "day", ve.Field)
	assert.Contains(t, ve.Reason, "lunes")

	err = v.Validate(sample{Email: "a@b.co", Day: "martes", Age: 3})
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "must be at least 16", ve.Reason)
}
