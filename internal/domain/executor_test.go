package domain_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramiqadoumi/go-control-tracker/internal/domain"
)

func TestExecutor_ShortName(t *testing.T) {
	tests := []struct {
		name     string
		fullName string
		want     string
	}{
		{"empty", "   ", ""},
		{"surname only", "Petrov", "Petrov"},
		{"surname and name", "Petrov Ivan", "Petrov I."},
		{"full", "Petrov Ivan Sergeevich", "Petrov I.S."},
		{"extra words ignored", "Petrov Ivan Sergeevich Jr", "Petrov I.S."},
		{"extra spaces", "  Petrov   Ivan  Sergeevich ", "Petrov I.S."},
		{"cyrillic", "Иванов Пётр Ильич", "Иванов П.И."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := domain.Executor{FullName: tt.fullName}
			assert.Equal(t, tt.want, e.ShortName())
		})
	}
}

func TestExecutor_Validate(t *testing.T) {
	var ve *domain.ValidationError

	err := (&domain.Executor{Position: "Engineer"}).Validate()
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "full_name", ve.Field)

	err = (&domain.Executor{FullName: "Petrov Ivan"}).Validate()
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "position", ve.Field)

	assert.NoError(t, (&domain.Executor{FullName: "Petrov Ivan", Position: "Engineer"}).Validate())
}

func TestExecutor_Normalize(t *testing.T) {
	e := domain.Executor{FullName: " Petrov  Ivan ", Position: " Engineer "}
	e.Normalize()
	assert.Equal(t, "Petrov Ivan", e.FullName)
	assert.Equal(t, "Engineer", e.Position)
}
