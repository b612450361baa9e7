// Package billing holds the subscription plan table and the quota rule
// applied to uploaded audio. Checkout and webhooks live in the external
// billing system; this package only reads its outcome.
package billing

// Plan describes a subscription tier and its per-file audio allowance.
type Plan struct {
	Name           string
	Slug           string
	MinutesPerFile int
	PriceCents     int
	StripePriceID  string
}

// Plans is the ordered plan table, unique by Name. The zero-priced entry is
// the default for users without an active subscription.
var Plans = []Plan{
	{
		Name:           "Free",
		Slug:           "free",
		MinutesPerFile: 10,
		PriceCents:     0,
	},
	{
		Name:           "Pro",
		Slug:           "pro",
		MinutesPerFile: 50,
		PriceCents:     500,
		StripePriceID:  "price_1P2dCVHJsWAqYfVGW1R8mlg6",
	},
}

// PlanByName looks up a plan by its tier name.
func PlanByName(name string) (Plan, bool) {
	for _, p := range Plans {
		if p.Name == name {
			return p, true
		}
	}
	return Plan{}, false
}

// ExceedsQuota reports whether an audio duration (in seconds) is over the
// plan's per-file allowance. Exactly MinutesPerFile minutes is allowed; a
// single second more is not. Callers must not pass a fabricated value when
// the duration is unknown; unknown durations fail closed at the workflow
// layer before this rule is consulted.
func (p Plan) ExceedsQuota(durationSeconds float64) bool {
	return durationSeconds/60 > float64(p.MinutesPerFile)
}
