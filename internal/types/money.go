// README: Cent rounding shared by pricing and session totals.
package types

import "math"

// RoundCents rounds v half away from zero to two decimals.
func RoundCents(v float64) float64 {
    return math.Round(v*100) / 100
}

// CeilCents rounds v up to the next cent. Values already on a cent, within
// float noise, are kept.
func CeilCents(v float64) float64 {
    cents := v * 100
    if r := math.Round(cents); math.Abs(cents-r) < 1e-6 {
        return r / 100
    }
    return math.Ceil(cents) / 100
}
