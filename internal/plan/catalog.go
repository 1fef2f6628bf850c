package plan

// Billing describes how an offering is charged
type Billing string

const (
	BillingNone    Billing = "none"
	BillingOneOff  Billing = "one_off"
	BillingMonthly Billing = "monthly"
)

// Offering is a purchasable plan as shown on the pricing view
type Offering struct {
	Plan        Plan     `json:"plan"`
	Label       string   `json:"label"`
	PriceCents  int64    `json:"priceCents"`
	Billing     Billing  `json:"billing"`
	Features    []string `json:"features"`
	Recommended bool     `json:"recommended,omitempty"`
}

var catalog = []Offering{
	{
		Plan:       Free,
		Label:      "Free Check",
		PriceCents: 0,
		Billing:    BillingNone,
		Features:   []string{"Overall health score", "Impact metrics score", "First section breakdown"},
	},
	{
		Plan:       Basic,
		Label:      "Professional",
		PriceCents: 1500,
		Billing:    BillingOneOff,
		Features:   []string{"Full section breakdown", "Suggested rewrites for every section", "Keyword gap report"},
	},
	{
		Plan:        Unlimited,
		Label:       "Unlimited",
		PriceCents:  2900,
		Billing:     BillingMonthly,
		Features:    []string{"Everything in Professional", "Full AI resume rewrite", "Unlimited re-analysis"},
		Recommended: true,
	},
	{
		Plan:       SuperPremium,
		Label:      "Executive Concierge",
		PriceCents: 9900,
		Billing:    BillingOneOff,
		Features:   []string{"Everything in Unlimited", "Executive-level structured rewrite", "Priority processing"},
	},
}

// Catalog returns the offerings in tier order
func Catalog() []Offering {
	out := make([]Offering, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the offering for p
func Lookup(p Plan) (Offering, bool) {
	for _, o := range catalog {
		if o.Plan == p {
			return o, true
		}
	}
	return Offering{}, false
}
