package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/matjip-map/discovery-service/internal/domain"
)

// terminalView prints viewport updates.
type terminalView struct {
	out io.Writer
}

func (v *terminalView) SetCenter(c domain.Coordinate) {
	fmt.Fprintf(v.out, "center %s\n", c)
}

func (v *terminalView) ShowResults(results []domain.RankedResult) {
	if len(results) == 0 {
		fmt.Fprintln(v.out, "   (주변에 맛집이 없어요)")
		return
	}
	for i, r := range results {
		fmt.Fprintf(v.out, "%3d. [%d] %s (%s) %.2fkm %.1f\n",
			i+1, r.POI.ID, r.POI.Name, r.POI.Category, r.DistanceKm, r.POI.Score)
	}
}

func (v *terminalView) ShowDetail(p domain.POI) {
	fmt.Fprintf(v.out, "── %s ──\n   %s | %s | %.1f | %s\n", p.Name, p.Category, p.Address, p.Score, p.Coordinate)
}

func (v *terminalView) CloseDetail() {}

// fixedGeolocator reports the position given on the command line.
type fixedGeolocator struct {
	coord *domain.Coordinate
}

func (g fixedGeolocator) CurrentPosition(ctx context.Context) (domain.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return domain.Coordinate{}, err
	}
	if g.coord == nil {
		return domain.Coordinate{}, errors.New("no position configured")
	}
	return *g.coord, nil
}
