// Package catalog describes the sellable products, their plan prices
// and their renewal options. The catalog is stored so operators can
// reprice without a redeploy; Defaults seeds a fresh store.
package catalog

import (
	"github.com/phamhp/napstore/license"
	"github.com/phamhp/napstore/types"
)

// DailyRenewalFee is the flat price of extending any daily license by
// one day, in dong.
const DailyRenewalFee int64 = 10000

// Renewal option keys accepted by the renew operation.
const (
	RenewOneMonth = "1_month"
	RenewOneYear  = "1_year"
)

type Renewal struct {
	Days  int   `json:"days"`
	Price int64 `json:"price"`
}

// Product is one sellable tool. PlanPrices maps purchase plans to
// prices in dong; Renewals maps renewal option keys to extensions.
type Product struct {
	Key        string                 `json:"key"`
	Name       string                 `json:"name"`
	PlanPrices map[license.Plan]int64 `json:"plan_prices"`
	Renewals   map[string]Renewal     `json:"renewals"`
	Disabled   bool                   `json:"disabled,omitempty"`
}

// PlanPrice returns the purchase price for a plan.
func (p *Product) PlanPrice(plan license.Plan) (types.Money, bool) {
	amount, ok := p.PlanPrices[plan]
	if !ok {
		return types.Zero("vnd"), false
	}
	return types.VND(amount), true
}

// RenewalOption returns a renewal option by key.
func (p *Product) RenewalOption(key string) (Renewal, bool) {
	r, ok := p.Renewals[key]
	return r, ok
}

// Defaults returns the launch catalog.
func Defaults() []*Product {
	standardPlans := func() map[license.Plan]int64 {
		return map[license.Plan]int64{
			license.PlanDaily:    10000,
			license.PlanMonthly:  200000,
			license.PlanYearly:   500000,
			license.PlanLifetime: 600000,
		}
	}

	return []*Product{
		{
			Key:        "regfb",
			Name:       "Reg FB Tool",
			PlanPrices: standardPlans(),
			Renewals: map[string]Renewal{
				RenewOneMonth: {Days: 30, Price: 200000},
				RenewOneYear:  {Days: 365, Price: 500000},
			},
		},
		{
			Key:        "clonetk",
			Name:       "Clone TK Tool",
			PlanPrices: standardPlans(),
			Renewals: map[string]Renewal{
				RenewOneMonth: {Days: 30, Price: 300000},
				RenewOneYear:  {Days: 365, Price: 700000},
			},
		},
		{
			Key:        "seoyt",
			Name:       "SEO YT Tool",
			PlanPrices: standardPlans(),
			Renewals: map[string]Renewal{
				RenewOneMonth: {Days: 30, Price: 400000},
				RenewOneYear:  {Days: 365, Price: 900000},
			},
		},
	}
}
