package presence

import "github.com/516hackers/osint516/internal/sink"

// Tool identifies social map records for the report aggregator.
const Tool = "516 Hackers Social Media Mapper"

// Persist writes the report as social_map_<username>_<YYYYMMDD_HHMMSS>.json.
func Persist(s *sink.Sink, r Report) (string, error) {
	return s.Persist("social_map", r.Username, r)
}
