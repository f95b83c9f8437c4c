package routing

import (
	"couriernav/internal/model"
)

// TwoOptName identifies the improvement strategy in the registry.
const TwoOptName = "Two-Opt"

// TwoOpt seeds with nearest-neighbor and then applies 2-opt segment
// reversals until no swap shortens the tour. Still deterministic: swaps are
// scanned in a fixed order and only strictly-improving moves are taken.
// With respectTimeWindows set it returns the nearest-neighbor order
// unchanged, since blind reversals would break window feasibility.
type TwoOpt struct {
	estimator
	seed *NearestNeighbor
	// MaxPasses caps full improvement sweeps; zero means a single pass.
	MaxPasses int
}

func NewTwoOpt(avgSpeedKmh float64, maxPasses int) *TwoOpt {
	return &TwoOpt{
		estimator: estimator{avgSpeedKmh: avgSpeedKmh},
		seed:      NewNearestNeighbor(avgSpeedKmh),
		MaxPasses: maxPasses,
	}
}

func (a *TwoOpt) Name() string { return TwoOptName }

func (a *TwoOpt) OptimizeRoute(start model.Location, end *model.Location, waypoints []model.Waypoint, respectTimeWindows bool) ([]model.Waypoint, error) {
	ordered, err := a.seed.OptimizeRoute(start, end, waypoints, respectTimeWindows)
	if err != nil {
		return nil, err
	}
	if respectTimeWindows || len(ordered) < 3 {
		return ordered, nil
	}

	passes := a.MaxPasses
	if passes <= 0 {
		passes = 1
	}
	best := ordered
	bestDist := a.CalculateRouteDistance(best, start, end)
	n := len(best)
	for p := 0; p < passes; p++ {
		improved := false
		for i := 0; i < n-1; i++ {
			for k := i + 1; k < n; k++ {
				cand := reverseSegment(best, i, k)
				d := a.CalculateRouteDistance(cand, start, end)
				if d+1e-9 < bestDist {
					best = cand
					bestDist = d
					improved = true
				}
			}
		}
		if !improved {
			break
		}
	}
	for i := range best {
		best[i].Sequence = i + 1
	}
	return best, nil
}

func reverseSegment(ord []model.Waypoint, i, k int) []model.Waypoint {
	out := make([]model.Waypoint, len(ord))
	copy(out, ord[:i])
	pos := i
	for j := k; j >= i; j-- {
		out[pos] = ord[j]
		pos++
	}
	copy(out[pos:], ord[k+1:])
	return out
}
