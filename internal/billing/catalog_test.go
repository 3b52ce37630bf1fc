package billing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func affiliatePlans() []PlanSpec {
	return []PlanSpec{
		{Code: "free", Name: "Free", MonthlyPrice: decimal.Zero},
		{Code: "basic", Name: "Basic", MonthlyPrice: decimal.NewFromInt(29), StripePriceID: "price_basic"},
		{Code: "pro", Name: "Pro", MonthlyPrice: decimal.NewFromInt(79), StripePriceID: "price_pro"},
		{Code: "agency", Name: "Agency", MonthlyPrice: decimal.NewFromInt(199), StripePriceID: "price_agency"},
	}
}

func TestNewCatalogRejectsBadInput(t *testing.T) {
	_, err := NewCatalog("affiliate", nil)
	require.Error(t, err)

	_, err = NewCatalog("affiliate", []PlanSpec{{Code: ""}})
	require.Error(t, err)

	_, err = NewCatalog("affiliate", []PlanSpec{{Code: "free"}, {Code: "free"}})
	require.Error(t, err)
}

func TestCatalogRankFollowsConfiguredOrder(t *testing.T) {
	catalog, err := NewCatalog("affiliate", affiliatePlans())
	require.NoError(t, err)

	for i, code := range []string{"free", "basic", "pro", "agency"} {
		rank, ok := catalog.Rank(code)
		require.True(t, ok, code)
		assert.Equal(t, i, rank)
	}

	_, ok := catalog.Rank("enterprise")
	assert.False(t, ok)

	assert.Equal(t, "free", catalog.Base().Code)
}

func TestValidateUpgrade(t *testing.T) {
	catalog, err := NewCatalog("affiliate", affiliatePlans())
	require.NoError(t, err)

	tests := []struct {
		name      string
		current   string
		requested string
		wantErr   error
	}{
		{"free to basic", "free", "basic", nil},
		{"basic to agency", "basic", "agency", nil},
		{"same plan", "pro", "pro", ErrDowngradeNotAllowed},
		{"downgrade", "agency", "basic", ErrDowngradeNotAllowed},
		{"unknown requested", "free", "enterprise", ErrInvalidPlan},
		{"unknown current", "legacy", "pro", ErrPlanNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := catalog.ValidateUpgrade(tt.current, tt.requested)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidateUpgradeHasNoSideEffects(t *testing.T) {
	catalog, err := NewCatalog("affiliate", affiliatePlans())
	require.NoError(t, err)

	before := catalog.Plans()
	_ = catalog.ValidateUpgrade("agency", "basic")
	_ = catalog.ValidateUpgrade("free", "agency")
	assert.Equal(t, before, catalog.Plans())
}

func TestSetPriceID(t *testing.T) {
	catalog, err := NewCatalog("affiliate", affiliatePlans())
	require.NoError(t, err)

	require.True(t, catalog.SetPriceID("free", "price_free_promo"))
	plan, ok := catalog.Resolve("free")
	require.True(t, ok)
	assert.Equal(t, "price_free_promo", plan.StripePriceID)

	assert.False(t, catalog.SetPriceID("enterprise", "price_x"))
}

func TestLoadCatalogs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plans.json")
	content := `{
	  "families": {
	    "affiliate": [
	      {"code": "free", "name": "Free", "monthly_price": "0"},
	      {"code": "basic", "name": "Basic", "monthly_price": "29", "stripe_price_id": "price_basic"}
	    ],
	    "customer": [
	      {"code": "starter", "name": "Starter", "monthly_price": "49", "stripe_price_id": "price_starter"}
	    ]
	  }
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	set, err := LoadCatalogs(path)
	require.NoError(t, err)
	require.Len(t, set, 2)

	basic, ok := set["affiliate"].Resolve("basic")
	require.True(t, ok)
	assert.Equal(t, "Basic", basic.Name)
	assert.True(t, basic.MonthlyPrice.Equal(decimal.NewFromInt(29)))
	assert.Equal(t, "starter", set["customer"].Base().Code)
}

func TestLoadCatalogsErrors(t *testing.T) {
	_, err := LoadCatalogs(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	empty := filepath.Join(t.TempDir(), "plans.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"families":{}}`), 0o600))
	_, err = LoadCatalogs(empty)
	require.Error(t, err)
}
