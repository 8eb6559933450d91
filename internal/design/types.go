// internal/design/types.go
//
// Type definitions for the satellite design stage.
// Defines:
//   - Payload: what the client submits (codes, placements, declared numbers).
//   - Quote: the server's authoritative pricing of a payload.
//   - Design: the immutable record persisted once per team.

package design

import (
	"time"

	"github.com/robalobadob/satquest/internal/catalog"
)

// Component is a payload part as placed by the client. Name, GridSpan, Cost
// and Power are declared by the client and never used for totals.
type Component struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Row      int    `json:"r"`
	Col      int    `json:"c"`
	GridSpan int    `json:"grid_span"`
	Cost     int64  `json:"cost"`
	Power    int    `json:"power"`
}

// Payload is a design submission. Platform may be a code or name; when empty,
// PlatformSize (the grid side) selects the platform.
type Payload struct {
	Platform     string      `json:"platform,omitempty"`
	PlatformSize int         `json:"platformSize"`
	Orbit        string      `json:"orbit"`
	Solar        string      `json:"solar"`
	Batteries    []string    `json:"batteries"`
	Components   []Component `json:"components"`
}

// Placed is a component after catalog resolution. Cost, Power and GridSpan
// come from the catalog; the Declared* fields echo the client.
type Placed struct {
	Code          string `json:"code"`
	Name          string `json:"name"`
	Row           int    `json:"r"`
	Col           int    `json:"c"`
	GridSpan      int    `json:"grid_span"`
	Cost          int64  `json:"cost"`
	Power         int    `json:"power"`
	DeclaredCost  int64  `json:"declaredCost"`
	DeclaredPower int    `json:"declaredPower"`
}

// Quote is the authoritative pricing of a payload.
type Quote struct {
	Platform       catalog.Platform
	Orbit          catalog.Orbit
	Solar          catalog.Solar
	SolarDefaulted bool // the submitted solar code was missing or unknown
	Batteries      []catalog.Battery
	Components     []Placed

	TotalCost      int64
	TotalPower     int
	BatteryStorage int
	SolarCapacity  int
	RuntimeHours   float64

	// Sums of client-declared values, kept for display only.
	DeclaredCost  int64
	DeclaredPower int
}

// Design is the persisted, immutable snapshot of an accepted submission.
type Design struct {
	ID             string    `json:"id"`
	TeamID         string    `json:"teamId"`
	TeamCode       string    `json:"teamCode"`
	PlatformCode   string    `json:"platformCode"`
	Platform       string    `json:"platform"`
	Orbit          string    `json:"orbit"`
	Solar          string    `json:"solar"`
	Batteries      []string  `json:"batteries"`
	Sensors        []Placed  `json:"sensors"`
	PowerDraw      int       `json:"powerDraw"`
	BatteryStorage int       `json:"batteryStorage"`
	SolarCapacity  int       `json:"solarCapacity"`
	RuntimeHours   float64   `json:"runtimeHours"`
	TotalCost      int64     `json:"totalCost"`
	DeclaredCost   int64     `json:"declaredCost"`
	RemainingCoins int64     `json:"remainingCoins"`
	CreatedAt      time.Time `json:"createdAt"`
}
