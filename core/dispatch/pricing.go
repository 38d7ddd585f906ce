package dispatch

import (
	"errors"
	"math"
)

// PricingPolicy parametrizes the fare price search.
type PricingPolicy struct {
	// CeilingFactor times the travel time is the exclusive price ceiling.
	CeilingFactor float64 `json:"ceiling_factor"`
	// Margin divides the travel time to get the baseline price.
	Margin float64 `json:"margin"`
	// SearchLimit bounds the whole-unit increments tried before the
	// remaining gap to the ceiling is closed in one step.
	SearchLimit int `json:"search_limit"`
	// FallbackPrice is charged when the travel time is unknown.
	FallbackPrice float64 `json:"fallback_price"`
}

// DefaultPricingPolicy returns the stock pricing parameters.
func DefaultPricingPolicy() PricingPolicy {
	return PricingPolicy{CeilingFactor: 10, Margin: 0.9, SearchLimit: 200, FallbackPrice: 150}
}

// SetDefaults fills unset fields from DefaultPricingPolicy.
func (p *PricingPolicy) SetDefaults() {
	d := DefaultPricingPolicy()
	if p.CeilingFactor == 0 {
		p.CeilingFactor = d.CeilingFactor
	}
	if p.Margin == 0 {
		p.Margin = d.Margin
	}
	if p.SearchLimit == 0 {
		p.SearchLimit = d.SearchLimit
	}
	if p.FallbackPrice == 0 {
		p.FallbackPrice = d.FallbackPrice
	}
}

// Validate rejects policies that cannot produce a positive price.
func (p PricingPolicy) Validate() error {
	if p.CeilingFactor <= 0 {
		return errors.New("dispatch: pricing ceiling_factor must be positive")
	}
	if p.Margin <= 0 {
		return errors.New("dispatch: pricing margin must be positive")
	}
	if p.SearchLimit < 0 {
		return errors.New("dispatch: pricing search_limit must not be negative")
	}
	if p.FallbackPrice <= 0 {
		return errors.New("dispatch: pricing fallback_price must be positive")
	}
	return nil
}

// PricingEngine turns travel time estimates into fare prices.
type PricingEngine struct {
	policy PricingPolicy
}

// NewPricingEngine returns an engine using policy.
func NewPricingEngine(policy PricingPolicy) *PricingEngine {
	return &PricingEngine{policy: policy}
}

// Policy returns the engine parameters.
func (e *PricingEngine) Policy() PricingPolicy { return e.policy }

// Price steps up from travelTime/Margin in whole units while the trial
// stays under the limit CeilingFactor*travelTime - 1, then rounds the last
// trial up by whole units past the limit. The result lies in
// [limit, CeilingFactor*travelTime). When travelTime/Margin already reaches
// the limit the price is the limit itself, or half the ceiling when the
// limit is not positive. Unknown travel times (zero, negative, NaN or
// infinite) get the fallback price.
func (e *PricingEngine) Price(travelTime float64) float64 {
	p := e.policy
	if !(travelTime > 0) || math.IsInf(travelTime, 1) {
		return p.FallbackPrice
	}
	ceiling := p.CeilingFactor * travelTime
	limit := ceiling - 1
	baseline := travelTime / p.Margin
	if baseline >= limit {
		// Even the first step is over the limit.
		if limit > 0 {
			return limit
		}
		return ceiling / 2
	}

	price := baseline
	for i := 1; i < p.SearchLimit; i++ {
		trial := baseline + float64(i)
		if trial >= limit {
			break
		}
		price = trial
	}
	if price < limit {
		price += math.Ceil(limit - price)
	}
	if price >= ceiling {
		price = math.Nextafter(ceiling, 0)
	}
	if price <= 0 {
		return p.FallbackPrice
	}
	return price
}
