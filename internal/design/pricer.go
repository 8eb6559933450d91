// internal/design/pricer.go
//
// Server-side pricing and validation of a design submission.
//
// Price resolves every part against the catalog and recomputes the totals:
//   - totalCost      = platform + orbit + solar + Σ batteries + Σ components
//   - totalPower     = orbit base power + Σ component draw
//   - batteryStorage = Σ battery storage
//   - solarCapacity  = solar max power (baseline tier when the code is unknown)
//
// Client-declared cost/power/span are summed for display but never priced.
//
// Validate then applies, in order (first failure wins):
//  1. power:  totalPower > solarCapacity → PowerOverload
//  2. budget: totalCost  > balance       → BudgetExceeded
//
// Placement legality and battery slots are checked inside Price, so a
// malformed layout is rejected before any power/budget check runs.

package design

import (
	"strings"
	"time"

	"github.com/robalobadob/satquest/internal/apperr"
	"github.com/robalobadob/satquest/internal/catalog"
)

// Evaluate prices p and validates it against balance.
func Evaluate(cat *catalog.Catalog, p Payload, balance int64) (*Quote, error) {
	q, err := Price(cat, p)
	if err != nil {
		return nil, err
	}
	if err := Validate(q, balance); err != nil {
		return nil, err
	}
	return q, nil
}

// Price resolves the payload against the catalog and computes totals.
func Price(cat *catalog.Catalog, p Payload) (*Quote, error) {
	q := &Quote{}

	platform, ok := resolvePlatform(cat, p)
	if !ok {
		return nil, apperr.Validation("unknown platform (platform=%q, platformSize=%d)", p.Platform, p.PlatformSize)
	}
	q.Platform = platform

	if strings.TrimSpace(p.Orbit) == "" {
		return nil, apperr.Validation("orbit is required")
	}
	orbit, ok := cat.Orbit(p.Orbit)
	if !ok {
		return nil, apperr.Validation("unknown orbit %q", p.Orbit)
	}
	q.Orbit = orbit

	if solar, ok := cat.SolarArray(p.Solar); ok {
		q.Solar = solar
	} else {
		q.Solar = cat.BaselineSolar()
		q.SolarDefaulted = true
	}

	if len(p.Batteries) > platform.MaxBatteries {
		return nil, apperr.Validation("%s supports at most %d battery packs, got %d",
			platform.Name, platform.MaxBatteries, len(p.Batteries))
	}
	q.Batteries = make([]catalog.Battery, 0, len(p.Batteries))
	for _, code := range p.Batteries {
		b, ok := cat.Battery(code)
		if !ok {
			return nil, apperr.Validation("unknown battery %q", code)
		}
		q.Batteries = append(q.Batteries, b)
	}

	q.Components = make([]Placed, 0, len(p.Components))
	fps := make([]Footprint, 0, len(p.Components))
	for i, c := range p.Components {
		sensor, ok := cat.Sensor(c.Code)
		if !ok {
			return nil, apperr.Validation("component %d: unknown code %q", i+1, c.Code)
		}
		name := c.Name
		if name == "" {
			name = sensor.Name
		}
		q.Components = append(q.Components, Placed{
			Code:          sensor.Code,
			Name:          name,
			Row:           c.Row,
			Col:           c.Col,
			GridSpan:      sensor.GridSpan,
			Cost:          sensor.Cost,
			Power:         sensor.Draw,
			DeclaredCost:  c.Cost,
			DeclaredPower: c.Power,
		})
		fps = append(fps, Footprint{Row: c.Row, Col: c.Col, Span: sensor.GridSpan})
	}
	if err := CheckPlacement(platform.GridSize, fps); err != nil {
		return nil, err
	}

	q.TotalCost = platform.Cost + orbit.Cost + q.Solar.Cost
	q.TotalPower = orbit.BasePower
	for _, b := range q.Batteries {
		q.TotalCost += b.Cost
		q.BatteryStorage += b.Storage
	}
	for _, c := range q.Components {
		q.TotalCost += c.Cost
		q.TotalPower += c.Power
		q.DeclaredCost += c.DeclaredCost
		q.DeclaredPower += c.DeclaredPower
	}
	q.SolarCapacity = q.Solar.MaxPower
	q.RuntimeHours = Runtime(q.BatteryStorage, q.TotalPower)
	return q, nil
}

// Validate applies the power and budget checks to a priced quote.
func Validate(q *Quote, balance int64) error {
	if q.TotalPower > q.SolarCapacity {
		return apperr.New(apperr.KindPowerOverload,
			"power overload: draw %dW exceeds solar capacity %dW", q.TotalPower, q.SolarCapacity)
	}
	if q.TotalCost > balance {
		return apperr.New(apperr.KindBudgetExceeded,
			"budget exceeded: cost %d exceeds balance %d", q.TotalCost, balance)
	}
	return nil
}

// Runtime is hours of battery-only operation. Power is floored at 1W.
func Runtime(storage, power int) float64 {
	return float64(storage) / float64(max(power, 1))
}

// Record snapshots an accepted quote for a team. ID is assigned by the caller.
func (q *Quote) Record(teamID, teamCode string, balance int64, now time.Time) *Design {
	batteries := make([]string, len(q.Batteries))
	for i, b := range q.Batteries {
		batteries[i] = b.Code
	}
	sensors := make([]Placed, len(q.Components))
	copy(sensors, q.Components)

	return &Design{
		TeamID:         teamID,
		TeamCode:       teamCode,
		PlatformCode:   q.Platform.Code,
		Platform:       q.Platform.Name,
		Orbit:          q.Orbit.Code,
		Solar:          q.Solar.Code,
		Batteries:      batteries,
		Sensors:        sensors,
		PowerDraw:      q.TotalPower,
		BatteryStorage: q.BatteryStorage,
		SolarCapacity:  q.SolarCapacity,
		RuntimeHours:   q.RuntimeHours,
		TotalCost:      q.TotalCost,
		DeclaredCost:   q.DeclaredCost,
		RemainingCoins: balance - q.TotalCost,
		CreatedAt:      now.UTC(),
	}
}

// resolvePlatform prefers an explicit code/name and falls back to grid size.
func resolvePlatform(cat *catalog.Catalog, p Payload) (catalog.Platform, bool) {
	if strings.TrimSpace(p.Platform) != "" {
		return cat.Platform(p.Platform)
	}
	return cat.PlatformBySize(p.PlatformSize)
}
