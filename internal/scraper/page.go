package scraper

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/stupside/vidrelay/internal/media"
	"github.com/stupside/vidrelay/internal/provider"
)

// qualityPattern pulls a resolution label such as 720p out of a file URL.
var qualityPattern = regexp.MustCompile(`(?i)(?:^|[^0-9])(2160|1440|1080|720|480|360|240)p?(?:[^0-9]|$)`)

// page is what a player or media page exposes in its markup.
type page struct {
	stream  *provider.Stream
	iframes []string
}

// parsePage extracts a stream, captions and iframe URLs from an HTML page.
// Relative URLs are resolved against base.
func parsePage(base *url.URL, body []byte) (*page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	var (
		playlist string
		files    = make(map[string]provider.File)
		captions []provider.Caption
		iframes  []string
	)

	doc.Find("video[src], source[src]").Each(func(_ int, s *goquery.Selection) {
		src, ok := resolveAttr(base, s, "src")
		if !ok {
			return
		}
		typ := strings.ToLower(s.AttrOr("type", ""))
		ct := media.DetectFromRawURL(src)

		switch {
		case ct == media.HLS || strings.Contains(typ, "mpegurl"):
			if playlist == "" {
				playlist = src
			}
		case ct == media.MP4 || ct == media.WebM || strings.HasPrefix(typ, "video/"):
			label := qualityLabel(s, src)
			if _, dup := files[label]; !dup {
				files[label] = provider.File{Type: fileType(ct, typ), URL: src}
			}
		}
	})

	doc.Find("track[src]").Each(func(_ int, s *goquery.Selection) {
		kind := strings.ToLower(s.AttrOr("kind", "subtitles"))
		if kind != "subtitles" && kind != "captions" {
			return
		}
		src, ok := resolveAttr(base, s, "src")
		if !ok {
			return
		}
		captions = append(captions, provider.Caption{
			Label:    strings.TrimSpace(s.AttrOr("label", "")),
			Language: strings.TrimSpace(s.AttrOr("srclang", "")),
			Src:      src,
		})
	})

	doc.Find("iframe").Each(func(_ int, s *goquery.Selection) {
		for _, attr := range []string{"src", "data-src"} {
			if src, ok := resolveAttr(base, s, attr); ok && !strings.HasPrefix(src, "about:") {
				iframes = append(iframes, src)
				return
			}
		}
	})

	// Players often build the <video> element from script, leaving the
	// playlist URL only in inline JS.
	if playlist == "" && len(files) == 0 {
		if m := hlsURLPattern.Find(body); m != nil {
			playlist = string(m)
		}
	}

	p := &page{iframes: iframes}
	switch {
	case playlist != "":
		p.stream = &provider.Stream{Type: provider.StreamHLS, Playlist: playlist, Captions: captions}
	case len(files) > 0:
		p.stream = &provider.Stream{Type: provider.StreamFile, Qualities: files, Captions: captions}
	}
	return p, nil
}

func resolveAttr(base *url.URL, s *goquery.Selection, attr string) (string, bool) {
	raw := strings.TrimSpace(s.AttrOr(attr, ""))
	if raw == "" {
		return "", false
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if base == nil {
		return ref.String(), ref.IsAbs()
	}
	return base.ResolveReference(ref).String(), true
}

// qualityLabel prefers explicit size/label attributes, then a resolution in
// the URL. An empty label means unknown.
func qualityLabel(s *goquery.Selection, src string) string {
	if size := strings.TrimSpace(s.AttrOr("size", "")); size != "" {
		if strings.HasSuffix(strings.ToLower(size), "p") {
			return strings.ToLower(size)
		}
		return size + "p"
	}
	for _, attr := range []string{"label", "data-quality", "res"} {
		if v := strings.TrimSpace(s.AttrOr(attr, "")); v != "" {
			return v
		}
	}
	if m := qualityPattern.FindStringSubmatch(src); m != nil {
		return m[1] + "p"
	}
	return ""
}

func fileType(ct, typ string) string {
	switch {
	case ct == media.WebM || typ == "video/webm":
		return "webm"
	default:
		return "mp4"
	}
}
