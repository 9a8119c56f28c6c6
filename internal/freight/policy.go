package freight

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Policy prices a delivery by road distance. A nil cost means "no price".
type Policy interface {
	Cost(distanceKM float64) *float64
}

type fixed struct{ price float64 }

func (p fixed) Cost(float64) *float64 { v := p.price; return &v }

type perKM struct{ rate float64 }

func (p perKM) Cost(km float64) *float64 { v := km * p.rate; return &v }

// Tier is one band of a tiered policy.
type Tier struct {
	UpToKM float64 `json:"up_to_km"`
	Price  float64 `json:"price"`
}

type tiered struct{ tiers []Tier }

func (p tiered) Cost(km float64) *float64 {
	for _, t := range p.tiers {
		if km <= t.UpToKM {
			v := t.Price
			return &v
		}
	}
	return nil
}

var ErrMalformedPolicy = errors.New("malformed freight policy")

type rawPolicy struct {
	Type       string   `json:"type"`
	Price      *float64 `json:"price"`
	PricePerKM *float64 `json:"price_per_km"`
	Tiers      []struct {
		UpToKM *float64 `json:"up_to_km"`
		Price  *float64 `json:"price"`
	} `json:"tiers"`
}

// ParsePolicy decodes a tenant freight configuration:
//
//	{"type":"FIXED","price":10}
//	{"type":"PER_KM","price_per_km":2.5}
//	{"type":"TIERED","tiers":[{"up_to_km":3,"price":5},{"up_to_km":999,"price":10}]}
//
// The type is case-insensitive. Tiers are sorted by bound.
func ParsePolicy(s string) (Policy, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("%w: empty", ErrMalformedPolicy)
	}
	var raw rawPolicy
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPolicy, err)
	}

	switch strings.ToUpper(strings.TrimSpace(raw.Type)) {
	case "FIXED":
		if raw.Price == nil {
			return nil, fmt.Errorf("%w: FIXED without price", ErrMalformedPolicy)
		}
		return fixed{price: *raw.Price}, nil
	case "PER_KM":
		if raw.PricePerKM == nil {
			return nil, fmt.Errorf("%w: PER_KM without price_per_km", ErrMalformedPolicy)
		}
		return perKM{rate: *raw.PricePerKM}, nil
	case "TIERED":
		tiers := make([]Tier, 0, len(raw.Tiers))
		for i, t := range raw.Tiers {
			if t.UpToKM == nil || t.Price == nil {
				return nil, fmt.Errorf("%w: tier %d incomplete", ErrMalformedPolicy, i)
			}
			tiers = append(tiers, Tier{UpToKM: *t.UpToKM, Price: *t.Price})
		}
		sort.SliceStable(tiers, func(i, j int) bool { return tiers[i].UpToKM < tiers[j].UpToKM })
		return tiered{tiers: tiers}, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformedPolicy, raw.Type)
	}
}
