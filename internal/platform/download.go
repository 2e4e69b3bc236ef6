package platform

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/516hackers/osint516/internal/httpx"
)

const maxRosterBytes = 4 << 20

// Download fetches a roster file from rawURL, checks that it parses, and
// replaces dest atomically. dest keeps its previous content on any failure.
func Download(ctx context.Context, client httpx.Doer, rawURL, userAgent, dest string) (Roster, error) {
	page, err := httpx.Get(ctx, client, rawURL, userAgent, nil, maxRosterBytes)
	if err != nil {
		return nil, errors.Wrap(err, "download roster")
	}
	if page.StatusCode != http.StatusOK {
		return nil, errors.Errorf("download failed: %s", page.Status)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, err
	}
	tmp := dest + ".tmp" + filepath.Ext(dest)
	if err := os.WriteFile(tmp, page.Body, 0o600); err != nil {
		return nil, err
	}

	r, err := LoadRoster(tmp)
	if err != nil {
		_ = os.Remove(tmp)
		return nil, err
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return nil, err
	}
	return r, nil
}
