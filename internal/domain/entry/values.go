package entry

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// ListValues splits a stored JSON string array into its elements. Any other
// value is a single element.
func ListValues(v string) []string {
	if strings.HasPrefix(strings.TrimSpace(v), "[") {
		var vals []string
		if err := json.Unmarshal([]byte(v), &vals); err == nil {
			return vals
		}
	}
	return []string{v}
}

// NumericValue parses a number, or an ISO date as unix seconds.
func NumericValue(v string) (float64, bool) {
	v = strings.TrimSpace(v)
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		return n, true
	}
	if t, err := time.ParseInLocation(time.DateOnly, v, time.UTC); err == nil {
		return float64(t.Unix()), true
	}
	return 0, false
}

// GeoValue parses a "lat,lng" pair.
func GeoValue(v string) (lat, lng float64, ok bool) {
	a, b, found := strings.Cut(v, ",")
	if !found {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(a), 64)
	if err != nil || lat < -90 || lat > 90 {
		return 0, 0, false
	}
	lng, err = strconv.ParseFloat(strings.TrimSpace(b), 64)
	if err != nil || lng < -180 || lng > 180 {
		return 0, 0, false
	}
	return lat, lng, true
}
