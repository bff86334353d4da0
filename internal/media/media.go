package media

import (
	"net/url"
	"path"
	"strings"
)

// Kind identifies what a TMDB id refers to.
type Kind string

const (
	KindMovie Kind = "movie"
	KindTV    Kind = "tv"
)

// StreamType is the delivery format of a normalized stream.
type StreamType string

const (
	StreamHLS StreamType = "hls"
	StreamMP4 StreamType = "mp4"
)

const (
	MP4  = "video/mp4"
	MKV  = "video/x-matroska"
	WebM = "video/webm"
	HLS  = "application/x-mpegURL"
	VTT  = "text/vtt"
	SRT  = "application/x-subrip"
)

var extensionMap = map[string]string{
	".mp4":  MP4,
	".m4v":  MP4,
	".mkv":  MKV,
	".webm": WebM,
	".m3u8": HLS,
	".vtt":  VTT,
	".srt":  SRT,
}

// Descriptor is a validated Query enriched with TMDB metadata.
// Title is empty and ReleaseYear is zero when metadata is unavailable.
type Descriptor struct {
	Query
	Title       string
	ReleaseYear int
}

// Quality is one playable rendition of a stream.
type Quality struct {
	Quality string `json:"quality"`
	URL     string `json:"url"`
}

// Caption is a subtitle track.
type Caption struct {
	Language  string `json:"language"`
	URL       string `json:"url"`
	IsDefault bool   `json:"isDefault"`
}

// Result is the uniform stream shape returned to callers.
type Result struct {
	Title          string            `json:"title"`
	Type           StreamType        `json:"type"`
	Qualities      []Quality         `json:"qualities"`
	Captions       []Caption         `json:"captions"`
	SourceProvider string            `json:"sourceProvider"`
	Headers        map[string]string `json:"headers,omitempty"`
}

// DetectFromExtension returns a content type based on the URL's file extension,
// or empty string if unrecognized.
func DetectFromExtension(u *url.URL) string {
	ext := strings.ToLower(path.Ext(u.Path))
	return extensionMap[ext]
}

// DetectFromRawURL is DetectFromExtension for unparsed URLs.
func DetectFromRawURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return DetectFromExtension(u)
}
