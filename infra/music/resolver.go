// Package music resolves shared Deezer and Spotify links into the display
// text shown under a moment.
package music

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/momentlog/momentlog/domain"
	"github.com/momentlog/momentlog/infra/config"
)

// ErrUnsupportedLink is returned for links that are neither Deezer tracks
// nor Spotify URLs.
var ErrUnsupportedLink = errors.New("unsupported music link")

const maxBody = 1 << 20

// Resolver implements app.MusicResolver.
type Resolver struct {
	deezerURL string
	oembedURL string
	http      *http.Client
}

// NewResolver creates a resolver against the configured endpoints.
func NewResolver(cfg config.MusicConfig) *Resolver {
	return &Resolver{
		deezerURL: strings.TrimRight(cfg.DeezerURL, "/"),
		oembedURL: cfg.OEmbedURL,
		http:      &http.Client{Timeout: 5 * time.Second},
	}
}

// Resolve looks the link up. Deezer tracks usually carry a 30s preview;
// Spotify oEmbed only gives a title, so the preview is the link itself.
func (r *Resolver) Resolve(ctx context.Context, link string) (domain.Music, error) {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || u.Host == "" {
		return domain.Music{}, fmt.Errorf("%w: %q", ErrUnsupportedLink, link)
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	switch {
	case host == "deezer.com":
		id, ok := deezerTrackID(u.Path)
		if !ok {
			return domain.Music{}, fmt.Errorf("%w: %q", ErrUnsupportedLink, link)
		}
		return r.deezerTrack(ctx, id, u.String())
	case host == "open.spotify.com":
		return r.spotify(ctx, u.String())
	}
	return domain.Music{}, fmt.Errorf("%w: %q", ErrUnsupportedLink, link)
}

// deezerTrackID accepts /track/123 and localized /en/track/123.
func deezerTrackID(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] == "track" && isDigits(parts[i+1]) {
			return parts[i+1], true
		}
	}
	return "", false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

type deezerTrack struct {
	Title   string `json:"title"`
	Preview string `json:"preview"`
	Artist  struct {
		Name string `json:"name"`
	} `json:"artist"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// deezerTrack falls back to link when the track has no preview.
func (r *Resolver) deezerTrack(ctx context.Context, id, link string) (domain.Music, error) {
	data, err := r.get(ctx, r.deezerURL+"/track/"+id)
	if err != nil {
		return domain.Music{}, err
	}
	var t deezerTrack
	if err := json.Unmarshal(data, &t); err != nil {
		return domain.Music{}, fmt.Errorf("parsing deezer track: %w", err)
	}
	// Deezer reports errors with a 200 status.
	if t.Error != nil {
		return domain.Music{}, fmt.Errorf("deezer: %s", t.Error.Message)
	}
	display := clean(t.Title)
	if artist := clean(t.Artist.Name); artist != "" {
		display += " - " + artist
	}
	preview := strings.TrimSpace(t.Preview)
	if preview == "" {
		preview = link
	}
	return domain.Music{Display: display, PreviewURL: preview}, nil
}

type oembed struct {
	Title string `json:"title"`
}

func (r *Resolver) spotify(ctx context.Context, link string) (domain.Music, error) {
	endpoint, err := url.Parse(r.oembedURL)
	if err != nil {
		return domain.Music{}, fmt.Errorf("oembed endpoint: %w", err)
	}
	q := endpoint.Query()
	q.Set("url", link)
	endpoint.RawQuery = q.Encode()

	data, err := r.get(ctx, endpoint.String())
	if err != nil {
		return domain.Music{}, err
	}
	var o oembed
	if err := json.Unmarshal(data, &o); err != nil {
		return domain.Music{}, fmt.Errorf("parsing oembed: %w", err)
	}
	return domain.Music{Display: clean(o.Title), PreviewURL: link}, nil
}

func (r *Resolver) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s: %w", req.URL.Host, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("GET %s returned %d", req.URL.Path, resp.StatusCode)
	}
	return data, nil
}

// clean drops terminal escapes from remote text before it reaches the feed.
func clean(s string) string {
	s = ansi.Strip(s)
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return r < 0x20 || r == 0x7f || r == ' '
	}), " ")
}
