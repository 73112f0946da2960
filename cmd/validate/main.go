// Command validate checks a restaurant dataset before it is served: the JSON
// fixture must be internally consistent, the SQLite database must hold the
// same records, and nearby searches around every district center must agree
// between the two.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -json data/mock/restaurants.json \
//	  -sqlite data/restaurants.db
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/matjip-map/discovery-service/internal/adapter/sqlite"
	"github.com/matjip-map/discovery-service/internal/domain"
	"github.com/matjip-map/discovery-service/internal/regions"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	jsonPath := flag.String("json", "", "path to JSON dataset fixture")
	sqlitePath := flag.String("sqlite", "", "path to SQLite dataset")
	regionsPath := flag.String("regions", "", "region table YAML (default: built-in table)")
	flag.Parse()

	if *jsonPath == "" || *sqlitePath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*jsonPath, *sqlitePath, *regionsPath); code != 0 {
		os.Exit(code)
	}
}

func run(jsonPath, sqlitePath, regionsPath string) int {
	fmt.Println("=== Restaurant Dataset Validation ===")
	fmt.Println()

	table := regions.Default()
	if regionsPath != "" {
		var err error
		if table, err = regions.Load(regionsPath); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load regions: %v\n", err)
			return 1
		}
	}

	fixture, err := loadJSON[domain.POI](jsonPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load JSON fixture: %v\n", err)
		return 1
	}

	stored, err := loadSQLite(sqlitePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load SQLite dataset: %v\n", err)
		return 1
	}

	// ── Run validation phases ──
	phases := []*phase{
		validateIntegrity("Fixture integrity", fixture),
		validateIntegrity("SQLite integrity", stored),
		validateParity(fixture, stored),
		validateNearbyAgreement(table, fixture, stored),
	}

	// ── Report results ──
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d JSON, %d SQLite\n", len(fixture), len(stored))

	// Print detailed errors.
	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

func loadJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func loadSQLite(path string) ([]domain.POI, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	repo, err := sqlite.Open(path)
	if err != nil {
		return nil, err
	}
	defer repo.Close()
	return repo.All(context.Background())
}

// ── Phases ──

func validateIntegrity(name string, pois []domain.POI) *phase {
	p := &phase{name: name}
	if len(pois) == 0 {
		p.errorf("dataset is empty")
		return p
	}
	seen := make(map[int64]int, len(pois))
	for i := range pois {
		poi := &pois[i]
		if prev, dup := seen[poi.ID]; dup {
			p.errorf("record %d: duplicate id %d (first at record %d)", i, poi.ID, prev)
		}
		seen[poi.ID] = i
		if strings.TrimSpace(poi.Name) == "" {
			p.errorf("record %d (id %d): empty name", i, poi.ID)
		}
		if err := poi.Coordinate.Validate(); err != nil {
			p.errorf("record %d (id %d): %v", i, poi.ID, err)
		}
		if poi.Category != domain.CategoryUncategorized && !poi.Category.Known() {
			p.errorf("record %d (id %d): unknown category %q", i, poi.ID, poi.Category)
		}
		if poi.Score < 0 || poi.Score > 5 || math.IsNaN(poi.Score) {
			p.errorf("record %d (id %d): score %v outside [0, 5]", i, poi.ID, poi.Score)
		}
	}
	return p
}

func validateParity(fixture, stored []domain.POI) *phase {
	p := &phase{name: "JSON/SQLite parity"}
	byID := make(map[int64]domain.POI, len(stored))
	for _, poi := range stored {
		byID[poi.ID] = poi
	}
	if len(fixture) != len(stored) {
		p.errorf("count mismatch: JSON=%d SQLite=%d", len(fixture), len(stored))
	}
	for _, want := range fixture {
		got, ok := byID[want.ID]
		if !ok {
			p.errorf("id %d: missing from SQLite", want.ID)
			continue
		}
		if diff := cmp.Diff(want, got); diff != "" {
			p.errorf("id %d: mismatch (-json +sqlite):\n%s", want.ID, diff)
		}
	}
	return p
}

// radiusTiers are the radii offered by the map UI.
var radiusTiers = []float64{0.5, 1.0, 3.0}

func validateNearbyAgreement(table *regions.Table, fixture, stored []domain.POI) *phase {
	p := &phase{name: "Nearby agreement at district centers"}
	for _, province := range table.Provinces() {
		for _, district := range table.Districts(province) {
			origin := table.Lookup(province, district)
			for _, r := range radiusTiers {
				want := ids(domain.FilterNearby(&origin, r, fixture))
				got := ids(domain.FilterNearby(&origin, r, stored))
				if diff := cmp.Diff(want, got); diff != "" {
					p.errorf("%s %s r=%.1fkm: results differ (-json +sqlite):\n%s", province, district, r, diff)
				}
			}
		}
	}
	return p
}

func ids(results []domain.RankedResult) []int64 {
	out := make([]int64, len(results))
	for i, r := range results {
		out[i] = r.POI.ID
	}
	return out
}
