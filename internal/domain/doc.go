// Package domain models the restaurant dataset and the geometry used to rank it
// against a user's position.
//
// # Coordinates
//
// All coordinates are WGS-84 degrees carried as a latitude/longitude pair:
//
//	latitude  ∈ [-90, 90]
//	longitude ∈ [-180, 180]
//
// Values outside these ranges (or NaN/Inf) are rejected with [ErrInvalidArgument]
// by [Coordinate.Validate]. The HTTP layer and the session store call it before
// anything is stored, so code past the service boundary can assume valid input.
//
// # Distance
//
// [Distance] is the haversine great-circle distance on a sphere of radius
// 6371 km. The intermediate term is clamped to [0, 1] so identical points yield
// exactly 0 and antipodal points yield π·R instead of NaN.
//
// [FilterNearby] ranks a candidate set around an origin:
//
//	keep      distance < radius   (strict)
//	order     distance asc, then POI id asc
//	truncate  MaxResults (50)
//
// A nil origin is the "location not known yet" state and produces an empty list,
// not an error.
//
// # Categories
//
// Categories are stored in the dataset as their Korean labels (한식, 중식, 일식,
// 양식, 분식, 카페). Anything else parses as [CategoryUncategorized] (기타) so a
// dirty row never fails a query. See [ParseCategory].
//
// # Errors
//
// The error taxonomy is three sentinels matched with errors.Is:
//
//	ErrInvalidArgument  malformed coordinate, non-positive radius, bad id
//	ErrNotFound         unknown POI id
//	ErrUnavailable      dataset or backing store unreachable
//
// "No location known" is deliberately not an error; it is an empty result.
package domain
