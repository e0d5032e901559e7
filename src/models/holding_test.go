package models_test

import (
	"testing"

	"portfolio/src/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestHoldingApply(t *testing.T) {
	t.Run("first buy sets avg to trade price", func(t *testing.T) {
		h := models.Holding{}
		newQty := h.Apply(d("10"), d("50"))

		assert.True(t, newQty.Equal(d("10")))
		assert.True(t, h.AvgPrice.Equal(d("50")))
	})

	t.Run("buy reweights average", func(t *testing.T) {
		h := models.Holding{Quantity: d("10"), AvgPrice: d("50")}
		newQty := h.Apply(d("5"), d("60"))

		assert.True(t, newQty.Equal(d("15")))
		// (10*50 + 5*60) / 15
		expected := d("800").Div(d("15"))
		assert.True(t, h.AvgPrice.Equal(expected), "got %s", h.AvgPrice)
	})

	t.Run("sell preserves cost basis", func(t *testing.T) {
		h := models.Holding{Quantity: d("15"), AvgPrice: d("53.33")}
		newQty := h.Apply(d("-8"), d("70"))

		assert.True(t, newQty.Equal(d("7")))
		assert.True(t, h.AvgPrice.Equal(d("53.33")))
	})

	t.Run("avg invariant over any sell sequence", func(t *testing.T) {
		h := models.Holding{Quantity: d("100"), AvgPrice: d("42.5")}
		for _, qty := range []string{"1", "2.5", "10", "36"} {
			h.Apply(d(qty).Neg(), d("99"))
			assert.True(t, h.AvgPrice.Equal(d("42.5")))
		}
		require.True(t, h.Quantity.Equal(d("50.5")))
	})

	t.Run("exact liquidation reaches zero", func(t *testing.T) {
		h := models.Holding{Quantity: d("7"), AvgPrice: d("53.33")}
		newQty := h.Apply(d("-7"), d("10"))

		assert.True(t, newQty.IsZero())
	})
}

func TestRoleCanTrade(t *testing.T) {
	assert.True(t, models.RoleUser.CanTrade())
	assert.True(t, models.RoleTrader.CanTrade())
	assert.True(t, models.RoleAdmin.CanTrade())
	assert.False(t, models.RoleViewer.CanTrade())
	assert.False(t, models.Role("bot").CanTrade())
}

func TestValidAssetType(t *testing.T) {
	for _, s := range []string{"stock", "crypto", "forex", "commodity", "index"} {
		assert.True(t, models.ValidAssetType(s), s)
	}
	assert.False(t, models.ValidAssetType("bond"))
	assert.False(t, models.ValidAssetType(""))
}
