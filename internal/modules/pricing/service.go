// README: Pricing calculator computes a per-vehicle fare quote.
package pricing

import (
	"fareflow/internal/modules/fareconfig"
	"fareflow/internal/modules/leadtime"
	"fareflow/internal/types"
)

type Service struct{}

func NewService() *Service {
	return &Service{}
}

// Quote prices one vehicle for a resolved trip. optionsFee is the summed fee of
// the currently selected options; lt is shared by every vehicle of a batch.
//
// The steps run in a fixed order: stops, options, night multiplier, volume
// discount, fare floor, lead-time adjustment. The floor is not re-checked after
// the lead-time step.
func (s *Service) Quote(trip TripInput, v fareconfig.Vehicle, cfg fareconfig.FareConfig, lt leadtime.Result, optionsFee float64) FareQuote {
	q := FareQuote{
		VehicleID:    v.ID,
		VehicleLabel: v.Label,
		PricingMode:  cfg.PricingBehavior,
	}
	if cfg.PricingBehavior == fareconfig.PricingAllQuote || v.QuoteOnly {
		q.IsQuote = true
		return q
	}

	total := nonNegative(trip.DistanceKm) * v.PricePerKm

	stops := trip.StopsCount
	if stops < 0 {
		stops = 0
	}
	q.ExtraStopsTotal = float64(stops) * cfg.StopFee
	total += q.ExtraStopsTotal

	q.OptionsFee = nonNegative(optionsFee)
	total += q.OptionsFee

	if hour, ok := leadtime.PickupHour(trip.PickupTime); ok && (hour >= nightStartHour || hour < nightEndHour) {
		total *= nightMultiplier
		q.Surcharges.Night = true
	}

	if total > discountThreshold {
		total *= discountMultiplier
		q.Surcharges.VolumeDiscount = true
	}

	// Compared on the cent grid so the rounded total never lands below baseFare.
	if floor := types.CeilCents(v.BaseFare); types.RoundCents(total) < floor {
		total = floor
		q.Surcharges.FareFloor = true
	}

	if cfg.PricingBehavior == fareconfig.PricingLeadTime {
		total, q.Surcharges.LeadTime = applyLeadTime(total, v, cfg.LeadTime, lt)
	}

	q.Total = types.RoundCents(total)
	return q
}

func applyLeadTime(total float64, v fareconfig.Vehicle, p fareconfig.LeadTimePolicy, lt leadtime.Result) (float64, *LeadTimeSurcharge) {
	desc := &LeadTimeSurcharge{
		Mode:             lt.Mode,
		ThresholdMinutes: lt.ThresholdMinutes,
		DeltaMinutes:     lt.DeltaMinutes,
	}
	if lt.Mode != leadtime.ModeImmediate || !p.ImmediateSurchargeEnabled {
		return total, desc
	}

	total += p.ImmediateBaseDeltaAmount + v.BaseFare*(p.ImmediateBaseDeltaPercent/100)
	if p.ImmediateTotalDeltaPercent > 0 {
		total *= 1 + p.ImmediateTotalDeltaPercent/100
	}
	desc.Applied = true
	desc.BaseDeltaAmount = p.ImmediateBaseDeltaAmount
	desc.BaseDeltaPercent = p.ImmediateBaseDeltaPercent
	desc.TotalDeltaPercent = p.ImmediateTotalDeltaPercent
	return total, desc
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
