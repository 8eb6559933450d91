// internal/catalog/catalog.go
//
// Static parts catalog for the satellite design stage.
//
// Responsibilities:
//   - Load the catalog from a YAML file, or fall back to the embedded default.
//   - Validate it once (unique codes, positive grid sizes/spans, baseline solar tier).
//   - Provide lookups by stable code, and by display name because the web client
//     posts names for orbit/solar/batteries.
//
// A Catalog is immutable after Load/Parse and safe for concurrent use.

package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/robalobadob/satquest/assets"
)

// Platform is a satellite bus. GridSize is the side of its square payload grid.
type Platform struct {
	Code         string `yaml:"code" json:"code"`
	Name         string `yaml:"name" json:"name"`
	Cost         int64  `yaml:"cost" json:"cost"`
	GridSize     int    `yaml:"grid_size" json:"grid_size"`
	MaxBatteries int    `yaml:"max_batteries" json:"max_batteries"`
	Desc         string `yaml:"desc" json:"desc,omitempty"`
}

// Orbit contributes a fixed base power draw.
type Orbit struct {
	Code      string `yaml:"code" json:"code"`
	Name      string `yaml:"name" json:"name"`
	Cost      int64  `yaml:"cost" json:"cost"`
	BasePower int    `yaml:"base_power" json:"base_power"`
	Desc      string `yaml:"desc" json:"desc,omitempty"`
}

// Sensor is a payload component occupying a GridSpan×GridSpan footprint.
type Sensor struct {
	Code     string `yaml:"code" json:"code"`
	Name     string `yaml:"name" json:"name"`
	Cost     int64  `yaml:"cost" json:"cost"`
	Draw     int    `yaml:"draw" json:"draw"`
	GridSpan int    `yaml:"grid_span" json:"grid_span"`
	Desc     string `yaml:"desc" json:"desc,omitempty"`
}

// Solar is a solar array; MaxPower caps the total draw of a design.
type Solar struct {
	Code     string `yaml:"code" json:"code"`
	Name     string `yaml:"name" json:"name"`
	Cost     int64  `yaml:"cost" json:"cost"`
	MaxPower int    `yaml:"max_power" json:"max_power"`
}

// Battery stores energy in watt-hours.
type Battery struct {
	Code    string `yaml:"code" json:"code"`
	Name    string `yaml:"name" json:"name"`
	Cost    int64  `yaml:"cost" json:"cost"`
	Storage int    `yaml:"storage" json:"storage"`
}

// Catalog is the full parts table.
type Catalog struct {
	DefaultSolar string     `yaml:"default_solar" json:"default_solar"`
	Platforms    []Platform `yaml:"platforms" json:"platforms"`
	Orbits       []Orbit    `yaml:"orbits" json:"orbits"`
	Sensors      []Sensor   `yaml:"sensors" json:"sensors"`
	Solar        []Solar    `yaml:"solar" json:"solar"`
	Batteries    []Battery  `yaml:"batteries" json:"batteries"`

	platforms index[Platform]
	bySize    map[int]Platform
	orbits    index[Orbit]
	sensors   index[Sensor]
	solar     index[Solar]
	batteries index[Battery]
}

// ErrInvalidCatalog is returned when a catalog document fails validation.
var ErrInvalidCatalog = errors.New("invalid catalog")

// Load reads a catalog from path. An empty path selects the embedded default.
func Load(path string) (*Catalog, error) {
	if path == "" {
		data, err := assets.Catalog()
		if err != nil {
			return nil, fmt.Errorf("read embedded catalog: %w", err)
		}
		return Parse(data)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Default returns the embedded catalog. It panics if the embedded document is broken.
func Default() *Catalog {
	c, err := Load("")
	if err != nil {
		panic(err)
	}
	return c
}

// Parse decodes and validates a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.build(); err != nil {
		return nil, err
	}
	return &c, nil
}

// build validates entries and fills lookup indexes.
func (c *Catalog) build() error {
	if len(c.Platforms) == 0 || len(c.Orbits) == 0 || len(c.Solar) == 0 {
		return fmt.Errorf("%w: platforms, orbits and solar must be non-empty", ErrInvalidCatalog)
	}

	var err error
	c.bySize = make(map[int]Platform, len(c.Platforms))
	if c.platforms, err = newIndex(c.Platforms, func(p Platform) (string, string) { return p.Code, p.Name }); err != nil {
		return err
	}
	for _, p := range c.Platforms {
		if p.GridSize <= 0 || p.MaxBatteries < 0 {
			return fmt.Errorf("%w: platform %s needs a positive grid size", ErrInvalidCatalog, p.Code)
		}
		if _, dup := c.bySize[p.GridSize]; dup {
			return fmt.Errorf("%w: two platforms share grid size %d", ErrInvalidCatalog, p.GridSize)
		}
		c.bySize[p.GridSize] = p
	}
	if c.orbits, err = newIndex(c.Orbits, func(o Orbit) (string, string) { return o.Code, o.Name }); err != nil {
		return err
	}
	if c.sensors, err = newIndex(c.Sensors, func(s Sensor) (string, string) { return s.Code, s.Name }); err != nil {
		return err
	}
	for _, s := range c.Sensors {
		if s.GridSpan <= 0 {
			return fmt.Errorf("%w: sensor %s needs a positive grid span", ErrInvalidCatalog, s.Code)
		}
	}
	if c.solar, err = newIndex(c.Solar, func(s Solar) (string, string) { return s.Code, s.Name }); err != nil {
		return err
	}
	if c.batteries, err = newIndex(c.Batteries, func(b Battery) (string, string) { return b.Code, b.Name }); err != nil {
		return err
	}

	if c.DefaultSolar == "" {
		c.DefaultSolar = c.Solar[0].Code
	}
	if _, ok := c.solar.get(c.DefaultSolar); !ok {
		return fmt.Errorf("%w: default_solar %q is not a solar code", ErrInvalidCatalog, c.DefaultSolar)
	}
	return nil
}

// Platform looks up a platform by code or name.
func (c *Catalog) Platform(key string) (Platform, bool) { return c.platforms.get(key) }

// PlatformBySize looks up the platform whose payload grid has the given side.
func (c *Catalog) PlatformBySize(size int) (Platform, bool) {
	p, ok := c.bySize[size]
	return p, ok
}

// Orbit looks up an orbit by code or name.
func (c *Catalog) Orbit(key string) (Orbit, bool) { return c.orbits.get(key) }

// Sensor looks up a payload component by code or name.
func (c *Catalog) Sensor(key string) (Sensor, bool) { return c.sensors.get(key) }

// SolarArray looks up a solar array by code or name.
func (c *Catalog) SolarArray(key string) (Solar, bool) { return c.solar.get(key) }

// BaselineSolar is the tier used when a submitted solar code is missing or unknown.
func (c *Catalog) BaselineSolar() Solar {
	s, _ := c.solar.get(c.DefaultSolar)
	return s
}

// Battery looks up a battery by code or name.
func (c *Catalog) Battery(key string) (Battery, bool) { return c.batteries.get(key) }

// index maps normalized codes and names to entries.
type index[T any] map[string]T

func newIndex[T any](items []T, keys func(T) (code, name string)) (index[T], error) {
	idx := make(index[T], len(items)*2)
	codes := make(map[string]struct{}, len(items))
	for _, it := range items {
		code, name := keys(it)
		k := normalize(code)
		if k == "" {
			return nil, fmt.Errorf("%w: entry without code", ErrInvalidCatalog)
		}
		if _, dup := codes[k]; dup {
			return nil, fmt.Errorf("%w: duplicate code %q", ErrInvalidCatalog, code)
		}
		codes[k] = struct{}{}
		idx[k] = it
		if n := normalize(name); n != "" {
			if _, taken := idx[n]; !taken {
				idx[n] = it
			}
		}
	}
	// Codes win over names that happen to collide with them.
	for _, it := range items {
		code, _ := keys(it)
		idx[normalize(code)] = it
	}
	return idx, nil
}

func (idx index[T]) get(key string) (T, bool) {
	v, ok := idx[normalize(key)]
	return v, ok
}

func normalize(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
