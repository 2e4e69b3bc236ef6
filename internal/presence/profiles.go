package presence

import (
	"time"

	"github.com/516hackers/osint516/internal/sink"
)

// ProfileStatus is the per-site record of the username search tool.
type ProfileStatus struct {
	URL       string    `json:"url"`
	Status    string    `json:"status"` // "Found", "Not found" or "Error: <reason>"
	Timestamp time.Time `json:"timestamp"`
}

func StatusOf(e Entry) string {
	switch {
	case e.Exists:
		return "Found"
	case e.Error != "":
		return "Error: " + e.Error
	default:
		return "Not found"
	}
}

// Profiles converts a report into the username search file layout.
func Profiles(r Report) map[string]ProfileStatus {
	out := make(map[string]ProfileStatus, len(r.Platforms))
	for _, e := range r.Platforms {
		out[e.Platform] = ProfileStatus{URL: e.URL, Status: StatusOf(e), Timestamp: r.GeneratedAt}
	}
	return out
}

// PersistProfiles writes <username>_profiles.json without an envelope.
func PersistProfiles(s *sink.Sink, r Report) (string, error) {
	return s.WriteJSON(sink.SafeName(r.Username)+"_profiles.json", Profiles(r))
}
