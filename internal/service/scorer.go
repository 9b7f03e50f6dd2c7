package service

import (
	"math"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// Feature is one weighted input of the cancellation score.
type Feature struct {
	Name   string
	Weight float64
	Value  func(b *model.Booking) float64
}

// Scorer estimates the probability that a booking will be canceled from
// its stored feature fields.  It is a fixed logistic model with hand-set
// weights.  Features are summed in slice order, so a booking always gets
// the same score.
type Scorer struct {
	Bias     float64
	Features []Feature
}

func count(f func(b *model.Booking) int) func(b *model.Booking) float64 {
	return func(b *model.Booking) float64 { return float64(f(b)) }
}

// DefaultScorer returns the weights used by the API.  Long lead times,
// prior cancellations and high prices push the score up; special requests
// and short stays push it down.
func DefaultScorer() Scorer {
	return Scorer{
		Bias: -1.6,
		Features: []Feature{
			{"lead_time", 0.012, count(func(b *model.Booking) int { return b.LeadTime })},
			{"no_of_previous_cancellations", 0.45, count(func(b *model.Booking) int { return b.NoOfPreviousCancellations })},
			{"repeated_guest", -0.2, count(func(b *model.Booking) int { return b.RepeatedGuest })},
			{"avg_price_per_room", 0.004, func(b *model.Booking) float64 { return b.AvgPricePerRoom }},
			{"no_of_special_requests", -0.55, count(func(b *model.Booking) int { return b.NoOfSpecialRequests })},
			{"total_nights", 0.06, count(func(b *model.Booking) int { return b.NoOfWeekNights + b.NoOfWeekendNights })},
			{"no_of_children", 0.1, count(func(b *model.Booking) int { return b.NoOfChildren })},
			{"no_of_adults", 0.05, count(func(b *model.Booking) int { return b.NoOfAdults })},
			{"meal_plan_selected", -0.15, func(b *model.Booking) float64 {
				if b.TypeOfMealPlan > 0 {
					return 1
				}
				return 0
			}},
		},
	}
}

// logit is the linear part of the model.
func (sc Scorer) logit(b *model.Booking) float64 {
	z := sc.Bias
	for _, f := range sc.Features {
		z += f.Weight * f.Value(b)
	}
	return z
}

// Score returns the cancellation probability in [0, 1], rounded to four
// decimals, and a confidence equal to the probability of the more likely
// outcome.
func (sc Scorer) Score(b *model.Booking) (probability, confidence float64) {
	p := 1 / (1 + math.Exp(-sc.logit(b)))
	p = math.Round(p*1e4) / 1e4
	return p, math.Max(p, 1-p)
}
