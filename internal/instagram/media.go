package instagram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/516hackers/osint516/internal/httpx"
	"github.com/516hackers/osint516/internal/sink"
)

const maxConcurrentDownloads = 6

// DownloadMedia saves the profile picture and timeline media referenced by
// userJSON into outDir and returns the number of files written. A failing
// item is logged and skipped unless outDir itself cannot be written.
func (c *Client) DownloadMedia(ctx context.Context, userJSON []byte, referer, outDir string) (int, error) {
	uris := mediaURIs(userJSON)
	if len(uris) == 0 {
		return 0, errors.New("instagram: no downloadable media found")
	}
	out := sink.New(outDir, "")

	var g errgroup.Group
	g.SetLimit(maxConcurrentDownloads)
	var failed atomic.Int32

	for i, mediaURL := range uris {
		g.Go(func() error {
			err := ctx.Err()
			if err == nil {
				err = c.downloadOne(ctx, out, referer, i, mediaURL)
			}
			if err == nil {
				return nil
			}
			failed.Add(1)
			c.log.WithError(err).WithField("url", mediaURL).Warn("instagram media download failed")
			if errors.Is(err, sink.ErrOutputDir) {
				return err
			}
			return nil
		})
	}

	err := g.Wait()
	n := int(failed.Load())
	saved := len(uris) - n
	switch {
	case err != nil:
		return saved, err
	case n > 0:
		return saved, errors.Errorf("instagram: %d of %d download(s) failed", n, len(uris))
	}
	return saved, nil
}

func mediaURIs(userJSON []byte) []string {
	var uris []string
	seen := make(map[string]struct{}, 64)

	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		uris = append(uris, s)
	}

	pic := gjson.GetBytes(userJSON, "profile_pic_url_hd").String()
	if pic == "" {
		pic = gjson.GetBytes(userJSON, "profile_pic_url").String()
	}
	add(pic)

	addFromNode := func(node gjson.Result) {
		if node.Get("is_video").Bool() {
			if v := node.Get("video_url").String(); v != "" {
				add(v)
				return
			}
		}
		add(node.Get("display_url").String())
	}

	for _, edge := range gjson.GetBytes(userJSON, "edge_owner_to_timeline_media.edges").Array() {
		node := edge.Get("node")
		addFromNode(node)
		for _, sub := range node.Get("edge_sidecar_to_children.edges").Array() {
			addFromNode(sub.Get("node"))
		}
	}
	return uris
}

func (c *Client) downloadOne(ctx context.Context, out *sink.Sink, referer string, index int, mediaURL string) error {
	u, err := url.Parse(mediaURL)
	if err != nil {
		return errors.Wrap(err, "parse media url")
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if ext == "" || len(ext) > 10 {
		ext = ".bin"
	}

	req, err := httpx.NewRequest(ctx, http.MethodGet, mediaURL, nil, c.userAgent)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "*/*")
	if referer != "" {
		req.Header.Set("Referer", referer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "GET %s", mediaURL)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return errors.Errorf("GET %s: %s", mediaURL, resp.Status)
	}

	_, err = out.WriteFrom(fmt.Sprintf("%03d%s", index, ext), io.LimitReader(resp.Body, maxBody))
	return err
}
