package instagram

import (
	"context"
	"io"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/516hackers/osint516/internal/httpx"
)

const (
	DefaultBaseURL = "https://www.instagram.com"

	// Public web client id; the web_profile_info endpoint rejects requests without it.
	webAppID = "936619743392459"

	maxBody = 20 << 20
)

var ErrNotFound = errors.New("instagram profile not found")

type Profile struct {
	Username      string    `json:"username"`
	UserID        string    `json:"userid"`
	FullName      string    `json:"full_name"`
	Biography     string    `json:"biography"`
	Followers     int64     `json:"followers"`
	Followees     int64     `json:"followees"`
	PostsCount    int64     `json:"posts_count"`
	IsPrivate     bool      `json:"is_private"`
	IsVerified    bool      `json:"is_verified"`
	ProfilePicURL string    `json:"profile_pic_url"`
	ExternalURL   string    `json:"external_url"`
	ScrapedAt     time.Time `json:"scraped_at"`
	Source        string    `json:"source"` // "api", "graphql" or "html"
}

type Client struct {
	http      httpx.Doer
	baseURL   string
	userAgent string
	log       logrus.FieldLogger
	now       func() time.Time
}

func NewClient(client httpx.Doer, baseURL, userAgent string, log logrus.FieldLogger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if userAgent == "" {
		userAgent = httpx.DefaultUserAgent
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{
		http:      client,
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		log:       log,
		now:       time.Now,
	}
}

// Profile fetches public profile data. It returns the profile and the raw
// user JSON (nil when only the HTML page could be read).
func (c *Client) Profile(ctx context.Context, username string) (*Profile, []byte, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return nil, nil, errors.New("instagram: empty username")
	}

	candidates := []struct {
		source string
		url    string
		path   string
	}{
		{"api", c.baseURL + "/api/v1/users/web_profile_info/?username=" + url.QueryEscape(username), "data.user"},
		{"graphql", c.baseURL + "/" + url.PathEscape(username) + "/?__a=1&__d=dis", "graphql.user"},
	}

	var lastErr error
	for _, cand := range candidates {
		body, status, err := c.get(ctx, cand.url, "application/json, text/plain, */*")
		if err != nil {
			lastErr = err
			continue
		}
		if status == http.StatusNotFound {
			return nil, nil, ErrNotFound
		}
		if status != http.StatusOK {
			lastErr = errors.Errorf("instagram %s: status %d", cand.source, status)
			continue
		}
		user := gjson.GetBytes(body, cand.path)
		if !user.IsObject() {
			// Login walls answer 200 with an HTML page.
			lastErr = errors.Errorf("instagram %s: unexpected payload", cand.source)
			continue
		}
		p := profileFromJSON(user)
		p.Source = cand.source
		p.ScrapedAt = c.now()
		return p, []byte(user.Raw), nil
	}

	c.log.WithError(lastErr).Debug("instagram json endpoints failed, falling back to html")

	body, status, err := c.get(ctx, c.baseURL+"/"+url.PathEscape(username)+"/", "text/html")
	if err != nil {
		return nil, nil, errors.Wrap(err, "instagram html")
	}
	if status == http.StatusNotFound {
		return nil, nil, ErrNotFound
	}
	if status != http.StatusOK {
		return nil, nil, errors.Errorf("instagram html: status %d (last api error: %v)", status, lastErr)
	}
	p, err := profileFromHTML(strings.NewReader(string(body)), username)
	if err != nil {
		return nil, nil, err
	}
	p.ScrapedAt = c.now()
	return p, nil, nil
}

func (c *Client) get(ctx context.Context, rawURL, accept string) ([]byte, int, error) {
	page, err := httpx.Get(ctx, c.http, rawURL, c.userAgent, http.Header{
		"Accept":      {accept},
		"X-IG-App-ID": {webAppID},
	}, maxBody)
	if err != nil {
		return nil, 0, err
	}
	return page.Body, page.StatusCode, nil
}

func profileFromJSON(u gjson.Result) *Profile {
	pic := u.Get("profile_pic_url_hd").String()
	if pic == "" {
		pic = u.Get("profile_pic_url").String()
	}
	return &Profile{
		Username:      u.Get("username").String(),
		UserID:        u.Get("id").String(),
		FullName:      u.Get("full_name").String(),
		Biography:     u.Get("biography").String(),
		Followers:     u.Get("edge_followed_by.count").Int(),
		Followees:     u.Get("edge_follow.count").Int(),
		PostsCount:    u.Get("edge_owner_to_timeline_media.count").Int(),
		IsPrivate:     u.Get("is_private").Bool(),
		IsVerified:    u.Get("is_verified").Bool(),
		ProfilePicURL: pic,
		ExternalURL:   u.Get("external_url").String(),
	}
}

var (
	ogCounts = regexp.MustCompile(`(?i)([\d.,]+[KMB]?)\s+Followers,\s+([\d.,]+[KMB]?)\s+Following,\s+([\d.,]+[KMB]?)\s+Posts`)
	ogTitle  = regexp.MustCompile(`^(.*?)\s*\(@([^)]+)\)`)
)

// profileFromHTML reads the Open Graph tags of a public profile page.
func profileFromHTML(r io.Reader, username string) (*Profile, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "parse instagram html")
	}

	meta := func(prop string) string {
		return strings.TrimSpace(doc.Find(`meta[property="` + prop + `"]`).AttrOr("content", ""))
	}

	desc := meta("og:description")
	m := ogCounts.FindStringSubmatch(desc)
	if m == nil {
		return nil, errors.New("instagram html: no profile data (login wall?)")
	}

	p := &Profile{
		Username:      username,
		Followers:     parseCount(m[1]),
		Followees:     parseCount(m[2]),
		PostsCount:    parseCount(m[3]),
		ProfilePicURL: meta("og:image"),
		Source:        "html",
	}
	if t := ogTitle.FindStringSubmatch(meta("og:title")); t != nil {
		p.FullName = strings.TrimSpace(t[1])
		p.Username = t[2]
	}
	return p, nil
}

// parseCount understands "1,234", "12.5K" and "3M".
func parseCount(s string) int64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	mult := 1.0
	switch strings.ToUpper(s[len(s)-1:]) {
	case "K":
		mult = 1e3
	case "M":
		mult = 1e6
	case "B":
		mult = 1e9
	}
	if mult != 1 {
		s = s[:len(s)-1]
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(math.Round(v * mult))
}
