package resolve

import (
	"cmp"
	"slices"
	"strconv"

	"github.com/stupside/vidrelay/internal/media"
	"github.com/stupside/vidrelay/internal/provider"
)

// autoQuality labels a playlist or an unlabeled file.
const autoQuality = "auto"

// Normalize converts a raw provider stream into the response shape. It
// returns nil for a nil stream. A result with no qualities means the
// stream was unusable.
func Normalize(stream *provider.Stream, captions []provider.Caption) *media.Result {
	if stream == nil {
		return nil
	}
	return &media.Result{
		Type:      streamType(stream.Type),
		Qualities: qualities(stream),
		Captions:  normalizeCaptions(captions),
		Headers:   copyHeaders(stream.Headers),
	}
}

func streamType(t provider.StreamType) media.StreamType {
	if t == provider.StreamFile {
		return media.StreamMP4
	}
	return media.StreamHLS
}

func qualities(stream *provider.Stream) []media.Quality {
	switch stream.Type {
	case provider.StreamHLS:
		if stream.Playlist == "" {
			return []media.Quality{}
		}
		return []media.Quality{{Quality: autoQuality, URL: stream.Playlist}}

	case provider.StreamFile:
		out := make([]media.Quality, 0, len(stream.Qualities))
		for label, f := range stream.Qualities {
			if f.URL == "" {
				continue
			}
			out = append(out, media.Quality{Quality: cmp.Or(label, autoQuality), URL: f.URL})
		}
		slices.SortFunc(out, func(a, b media.Quality) int { return cmp.Compare(a.Quality, b.Quality) })
		return out

	default:
		return []media.Quality{}
	}
}

func normalizeCaptions(captions []provider.Caption) []media.Caption {
	out := make([]media.Caption, 0, len(captions))
	for i, c := range captions {
		out = append(out, media.Caption{
			Language:  cmp.Or(c.Label, c.Language, "Subtitle "+strconv.Itoa(i+1)),
			URL:       cmp.Or(c.URL, c.Src),
			IsDefault: i == 0,
		})
	}
	return out
}

func copyHeaders(h map[string]string) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		if k != "" {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
