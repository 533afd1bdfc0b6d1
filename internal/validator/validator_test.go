package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldNames(t *testing.T) {
	type sample struct {
		Form   string `form:"workcenter_plantreference" validate:"required"`
		JSON   string `json:"access,omitempty"          validate:"required"`
		Config string `mapstructure:"base_url"          validate:"required"`
		Plain  string `validate:"required"`
	}

	v := Create()
	err := v.Validate(&sample{})
	require.Error(t, err)

	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)

	names := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		names = append(names, fe.Field())
	}

	assert.Equal(t, []string{"workcenter_plantreference", "access", "base_url", "Plain"}, names)
}

func TestValid(t *testing.T) {
	type sample struct {
		URL string `json:"url" validate:"required,url"`
	}

	v := Create()
	require.NoError(t, v.Validate(&sample{URL: "http://127.0.0.1:8000/api/"}))
	require.Error(t, v.Validate(&sample{URL: "not a url"}))
}
