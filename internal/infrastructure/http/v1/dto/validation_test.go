package dto

import (
	"encoding/json"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bakehouse/internal/core/types"
)

func TestISODateValidation(t *testing.T) {
	RegisterValidators()

	tests := []struct {
		date  string
		valid bool
	}{
		{"2024-01-31", true},
		{"2024-02-29", true},
		{"2023-02-29", false},
		{"2024-1-31", false},
		{"31.01.2024", false},
		{"2024-01-31T00:00:00Z", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			err := binding.Validator.ValidateStruct(&FinishBatchRequest{Date: tt.date, Branch: "Main"})
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestISODateValidation_Optional(t *testing.T) {
	RegisterValidators()

	req := GroceryReturnRequest{ItemCode: "JAM", Branch: "Main", ReturnedQty: 1000, Reason: "damaged"}
	assert.NoError(t, binding.Validator.ValidateStruct(&req))

	req.Date = "yesterday"
	assert.Error(t, binding.Validator.ValidateStruct(&req))
}

func TestMoneyRendersTwoDecimals(t *testing.T) {
	assert.Equal(t, "6.00", Money(types.MustMoney("6")).String())
	assert.Equal(t, "2.40", Money(types.MustMoney("2.4")).String())
}

func TestGroceryRemainingRequest_RequiresNewRemaining(t *testing.T) {
	RegisterValidators()

	var req GroceryRemainingRequest
	require.NoError(t, json.Unmarshal([]byte(`{"branch":"Main","updates":[{"itemCode":"Y","remaining":2}]}`), &req))
	assert.Error(t, binding.Validator.ValidateStruct(&req))

	req = GroceryRemainingRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{"branch":"Main","updates":[{"itemCode":"Y","newRemaining":0}]}`), &req))
	require.NoError(t, binding.Validator.ValidateStruct(&req))
	updates := req.ToUpdates()
	require.Len(t, updates, 1)
	assert.True(t, updates[0].NewRemaining.IsZero())
}

func TestMustRegister(t *testing.T) {
	v := validator.New()
	assert.NotPanics(t, func() { mustRegister(v, "isodate", validateISODate) })
	assert.NoError(t, v.Var("2024-01-31", "isodate"))
	assert.Error(t, v.Var("2024-13-01", "isodate"))

	assert.Panics(t, func() { mustRegister(v, "", validateISODate) })
}
