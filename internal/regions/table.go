// Package regions maps province and district names to map coordinates.
package regions

import (
	"errors"
	"fmt"
	"os"

	"github.com/matjip-map/discovery-service/internal/domain"
	"gopkg.in/yaml.v3"
)

// All is the selector sentinel meaning "unset / every region".
const All = "전체"

// District is one selectable district and the coordinate the map centers on.
type District struct {
	Name string  `json:"name" yaml:"name"`
	Lat  float64 `json:"lat" yaml:"lat"`
	Lng  float64 `json:"lng" yaml:"lng"`
}

// Coordinate returns the district's map center.
func (d District) Coordinate() domain.Coordinate {
	return domain.Coordinate{Lat: d.Lat, Lng: d.Lng}
}

// Province groups districts in display order.
type Province struct {
	Name      string     `json:"name" yaml:"name"`
	Districts []District `json:"districts" yaml:"districts"`
}

// Snapshot is the serialized form of a Table, shared by the YAML file and GET /regions.
type Snapshot struct {
	Default   domain.Coordinate `json:"default" yaml:"default"`
	Provinces []Province        `json:"provinces" yaml:"provinces"`
}

// Table is an immutable province/district lookup.
type Table struct {
	snap  Snapshot
	index map[string]map[string]domain.Coordinate
}

// DefaultCoordinate is used for any unmapped (province, district) pair.
var DefaultCoordinate = domain.Coordinate{Lat: 33.450701, Lng: 126.570667}

// Default returns the built-in table.
func Default() *Table {
	t, _ := New(Snapshot{
		Default: DefaultCoordinate,
		Provinces: []Province{
			{Name: "서울특별시", Districts: []District{
				{Name: "은평구", Lat: 37.6027, Lng: 126.9292},
			}},
			{Name: "경기도", Districts: []District{
				{Name: "화성시 와우리", Lat: 37.1994, Lng: 126.8317},
				{Name: "수원시", Lat: 37.2636, Lng: 127.0286},
			}},
		},
	})
	return t
}

// New validates a snapshot and indexes it.
func New(snap Snapshot) (*Table, error) {
	if len(snap.Provinces) == 0 {
		return nil, errors.New("regions: at least one province is required")
	}
	if err := snap.Default.Validate(); err != nil {
		return nil, fmt.Errorf("regions: default: %w", err)
	}

	index := make(map[string]map[string]domain.Coordinate, len(snap.Provinces))
	for _, p := range snap.Provinces {
		if p.Name == "" || p.Name == All {
			return nil, fmt.Errorf("regions: invalid province name %q", p.Name)
		}
		if _, dup := index[p.Name]; dup {
			return nil, fmt.Errorf("regions: duplicate province %q", p.Name)
		}
		if len(p.Districts) == 0 {
			return nil, fmt.Errorf("regions: province %q has no districts", p.Name)
		}
		districts := make(map[string]domain.Coordinate, len(p.Districts))
		for _, d := range p.Districts {
			if d.Name == "" || d.Name == All {
				return nil, fmt.Errorf("regions: %s: invalid district name %q", p.Name, d.Name)
			}
			if err := d.Coordinate().Validate(); err != nil {
				return nil, fmt.Errorf("regions: %s %s: %w", p.Name, d.Name, err)
			}
			districts[d.Name] = d.Coordinate()
		}
		index[p.Name] = districts
	}
	return &Table{snap: snap, index: index}, nil
}

// Parse decodes a YAML table.
func Parse(data []byte) (*Table, error) {
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("regions: decode: %w", err)
	}
	return New(snap)
}

// Load reads a YAML table from path.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("regions: %w", err)
	}
	return Parse(data)
}

// Provinces lists province names in display order.
func (t *Table) Provinces() []string {
	names := make([]string, 0, len(t.snap.Provinces))
	for _, p := range t.snap.Provinces {
		names = append(names, p.Name)
	}
	return names
}

// Districts lists the districts of province in display order, or nil when unknown.
func (t *Table) Districts(province string) []string {
	for _, p := range t.snap.Provinces {
		if p.Name != province {
			continue
		}
		names := make([]string, 0, len(p.Districts))
		for _, d := range p.Districts {
			names = append(names, d.Name)
		}
		return names
	}
	return nil
}

// FirstDistrict returns the first district of province, or All when unknown.
func (t *Table) FirstDistrict(province string) string {
	if ds := t.Districts(province); len(ds) > 0 {
		return ds[0]
	}
	return All
}

// Lookup returns the coordinate of (province, district), falling back to the
// table default when the pair is unmapped.
func (t *Table) Lookup(province, district string) domain.Coordinate {
	if c, ok := t.index[province][district]; ok {
		return c
	}
	return t.snap.Default
}

// Default returns the fallback coordinate.
func (t *Table) Default() domain.Coordinate {
	return t.snap.Default
}

// Snapshot returns a copy of the table contents.
func (t *Table) Snapshot() Snapshot {
	out := Snapshot{Default: t.snap.Default, Provinces: make([]Province, len(t.snap.Provinces))}
	for i, p := range t.snap.Provinces {
		out.Provinces[i] = Province{Name: p.Name, Districts: append([]District(nil), p.Districts...)}
	}
	return out
}
