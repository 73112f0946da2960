package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/matjip-map/discovery-service/internal/domain"
	"github.com/matjip-map/discovery-service/internal/search"
)

const maxBodyBytes = 1 << 12

type locationRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

type geocodeResponse struct {
	Query      string            `json:"query"`
	RegionName string            `json:"region_name"`
	PlaceName  string            `json:"place_name"`
	Coordinate domain.Coordinate `json:"coordinate"`
	Confidence float64           `json:"confidence"`
}

func (s *Server) handleSetLocation(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Lat == nil || req.Lng == nil {
		writeError(w, http.StatusBadRequest, "lat and lng are required")
		return
	}

	c := domain.Coordinate{Lat: *req.Lat, Lng: *req.Lng}
	if err := s.deps.Search.SetLocation(r.Context(), sessionID(r.Context()), c); err != nil {
		s.writeDomainError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]string{"message": "location saved"})
}

func (s *Server) handleMarkers(w http.ResponseWriter, r *http.Request) {
	pois, err := s.deps.Search.ListAll(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, pois)
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be an integer")
		return
	}
	poi, err := s.deps.Search.GetDetail(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, poi)
}

func (s *Server) handleNearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	radius := search.DefaultRadiusKm
	if v := q.Get("radius"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "radius must be a number")
			return
		}
		radius = parsed
	}

	var category domain.Category
	if v := strings.TrimSpace(q.Get("category")); v != "" {
		category = domain.ParseCategory(v)
		if category == domain.CategoryUncategorized && v != string(domain.CategoryUncategorized) {
			writeError(w, http.StatusBadRequest, "unknown category "+strconv.Quote(v))
			return
		}
	}

	results, err := s.deps.Search.Nearby(r.Context(), sessionID(r.Context()), radius, category)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, results)
}

func (s *Server) handleRegions(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, s.deps.Regions.Current().Snapshot())
}

func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	if s.deps.Geocoder == nil {
		writeError(w, http.StatusServiceUnavailable, "geocoding disabled")
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	result, ok := domain.ResolvePlace(r.Context(), s.deps.Geocoder, query, s.logger)
	if !ok {
		writeError(w, http.StatusNotFound, "no match for "+strconv.Quote(query))
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, geocodeResponse{
		Query:      query,
		RegionName: result.RegionName,
		PlaceName:  result.PlaceName,
		Coordinate: result.Coordinate,
		Confidence: result.Confidence,
	})
}

// writeDomainError maps the domain sentinel errors onto status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnavailable):
		s.logger.Error("backing store unavailable", "error", err)
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	default:
		s.logger.Error("unhandled error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}
