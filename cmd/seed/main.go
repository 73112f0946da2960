// Command seed generates a deterministic mock restaurant dataset around every
// district of the region table and writes it to a SQLite database and/or a
// JSON fixture for tests and local runs.
//
// Usage:
//
//	go run ./cmd/seed \
//	  -sqlite data/restaurants.db \
//	  -json data/mock/restaurants.json \
//	  -per-district 12
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"

	"github.com/matjip-map/discovery-service/internal/adapter/sqlite"
	"github.com/matjip-map/discovery-service/internal/domain"
	"github.com/matjip-map/discovery-service/internal/regions"
)

// maxOffsetKm bounds how far a generated restaurant sits from its district center.
const maxOffsetKm = 3.0

var namePrefixes = []string{"원조", "옛날", "할매", "시골", "장터", "골목", "명가", "본가"}

var nameSuffixes = map[domain.Category][]string{
	domain.CategoryKorean:   {"국밥", "갈비", "한정식", "보쌈", "순두부"},
	domain.CategoryChinese:  {"반점", "짬뽕", "중화요리"},
	domain.CategoryJapanese: {"스시", "라멘", "돈카츠"},
	domain.CategoryWestern:  {"파스타", "비스트로", "스테이크"},
	domain.CategorySnack:    {"떡볶이", "김밥", "분식"},
	domain.CategoryCafe:     {"커피", "베이커리", "디저트"},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	sqlitePath := flag.String("sqlite", "", "SQLite database to upsert into")
	jsonOut := flag.String("json", "", "output path for JSON fixture")
	regionsPath := flag.String("regions", "", "region table YAML (default: built-in table)")
	perDistrict := flag.Int("per-district", 12, "restaurants per district")
	seed := flag.Uint64("seed", 42, "random seed")
	flag.Parse()

	if *sqlitePath == "" && *jsonOut == "" {
		flag.Usage()
		return fmt.Errorf("at least one of -sqlite or -json is required")
	}
	if *perDistrict <= 0 {
		return fmt.Errorf("-per-district must be positive")
	}

	table := regions.Default()
	if *regionsPath != "" {
		var err error
		if table, err = regions.Load(*regionsPath); err != nil {
			return fmt.Errorf("load regions: %w", err)
		}
	}

	pois := generate(table, *perDistrict, rand.New(rand.NewPCG(*seed, *seed))) //nolint:gosec // deterministic fixture data
	log.Printf("generated %d restaurants", len(pois))

	if *sqlitePath != "" {
		if err := writeSQLite(*sqlitePath, pois); err != nil {
			return fmt.Errorf("writing sqlite: %w", err)
		}
		log.Printf("wrote sqlite dataset: %s", *sqlitePath)
	}
	if *jsonOut != "" {
		if err := writeJSON(*jsonOut, pois); err != nil {
			return fmt.Errorf("writing JSON fixture: %w", err)
		}
		log.Printf("wrote JSON fixture: %s", *jsonOut)
	}

	printStats(table, pois)
	return nil
}

func generate(table *regions.Table, perDistrict int, rng *rand.Rand) []domain.POI {
	var pois []domain.POI
	id := int64(1)
	for _, province := range table.Provinces() {
		for _, district := range table.Districts(province) {
			center := table.Lookup(province, district)
			for range perDistrict {
				category := domain.Categories[rng.IntN(len(domain.Categories))]
				suffixes := nameSuffixes[category]
				pois = append(pois, domain.POI{
					ID:         id,
					Name:       namePrefixes[rng.IntN(len(namePrefixes))] + " " + suffixes[rng.IntN(len(suffixes))],
					Category:   category,
					Coordinate: offset(center, rng.Float64()*maxOffsetKm, rng.Float64()*2*math.Pi),
					Address:    fmt.Sprintf("%s %s %d번길 %d", province, district, rng.IntN(90)+1, rng.IntN(40)+1),
					Score:      math.Round((3+rng.Float64()*2)*10) / 10,
				})
				id++
			}
		}
	}
	return pois
}

// offset moves c by distKm along the given bearing on a spherical earth.
func offset(c domain.Coordinate, distKm, bearing float64) domain.Coordinate {
	lat1 := c.Lat * math.Pi / 180
	lng1 := c.Lng * math.Pi / 180
	ang := distKm / domain.EarthRadiusKm

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(ang) + math.Cos(lat1)*math.Sin(ang)*math.Cos(bearing))
	lng2 := lng1 + math.Atan2(math.Sin(bearing)*math.Sin(ang)*math.Cos(lat1), math.Cos(ang)-math.Sin(lat1)*math.Sin(lat2))

	return domain.Coordinate{
		Lat: math.Round(lat2*180/math.Pi*1e6) / 1e6,
		Lng: math.Round(lng2*180/math.Pi*1e6) / 1e6,
	}
}

func writeSQLite(path string, pois []domain.POI) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	repo, err := sqlite.Open(path)
	if err != nil {
		return err
	}
	defer repo.Close()
	return repo.Upsert(context.Background(), pois)
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

type districtCount struct {
	name  string
	count int
}

func printStats(table *regions.Table, pois []domain.POI) {
	categoryCounts := map[domain.Category]int{}
	for i := range pois {
		categoryCounts[pois[i].Category]++
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d\n", len(pois))
	fmt.Print("By category:")
	for _, c := range domain.Categories {
		fmt.Printf(" %s=%d", c, categoryCounts[c])
	}
	fmt.Println()

	// Nearby counts per district center at the UI radius tiers.
	fmt.Println("\nWithin radius of district centers:")
	var rows []districtCount
	for _, province := range table.Provinces() {
		for _, district := range table.Districts(province) {
			origin := table.Lookup(province, district)
			n := len(domain.FilterNearby(&origin, 1.0, pois))
			rows = append(rows, districtCount{province + " " + district, n})
			fmt.Printf("  %s: 0.5km=%d 1km=%d 3km=%d\n", province+" "+district,
				len(domain.FilterNearby(&origin, 0.5, pois)), n,
				len(domain.FilterNearby(&origin, 3.0, pois)))
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].count > rows[j].count })
	if len(rows) > 0 {
		fmt.Printf("\nDensest district at 1km: %s (%d)\n", rows[0].name, rows[0].count)
	}
}
