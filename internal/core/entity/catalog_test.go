package entity

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"bakehouse/internal/core/apperror"
)

func TestCatalog_Validate(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		cname   string
		wantErr bool
	}{
		{"ok", "CROISSANT", "Croissant", false},
		{"trims", "  BAGEL ", " Bagel ", false},
		{"missing code", "", "x", true},
		{"missing name", "X", "  ", true},
		{"long code", strings.Repeat("A", 65), "x", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCatalog(tt.code, tt.cname)
			err := c.Validate(context.Background())
			if tt.wantErr {
				assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewBaseEntity(t *testing.T) {
	a, b := NewBaseEntity(), NewBaseEntity()
	assert.True(t, a.IsActive)
	assert.Equal(t, 1, a.Version)
	assert.Equal(t, a.CreatedAt, a.UpdatedAt)
	assert.NotEqual(t, a.ID, b.ID)
}
