package instagram

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"
)

// Tool identifies instagram records for the report aggregator.
const Tool = "516 Hackers Instagram Analyzer"

type Record struct {
	Profile  *Profile `json:"profile"`
	Analysis Analysis `json:"analysis"`
}

var csvHeader = []string{
	"username", "userid", "full_name", "biography", "followers", "followees",
	"posts_count", "is_private", "is_verified", "profile_pic_url", "external_url", "scraped_at",
}

// CSV renders the profile as a one-row CSV document with a header.
func CSV(p *Profile) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	row := []string{
		p.Username,
		p.UserID,
		p.FullName,
		p.Biography,
		strconv.FormatInt(p.Followers, 10),
		strconv.FormatInt(p.Followees, 10),
		strconv.FormatInt(p.PostsCount, 10),
		strconv.FormatBool(p.IsPrivate),
		strconv.FormatBool(p.IsVerified),
		p.ProfilePicURL,
		p.ExternalURL,
		p.ScrapedAt.Format(time.RFC3339),
	}
	if err := w.Write(row); err != nil {
		return nil, err
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
