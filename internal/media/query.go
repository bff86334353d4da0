package media

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Query identifies the media a caller wants a stream for.
// Season and Episode are only meaningful for KindTV.
type Query struct {
	TMDBID  string `validate:"required"`
	Kind    Kind   `validate:"required,oneof=movie tv"`
	Season  *int   `validate:"required_if=Kind tv"`
	Episode *int   `validate:"required_if=Kind tv"`
	Quality string
}

// ValidationError reports a missing or malformed request parameter.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

var validate = validator.New()

// paramNames maps struct fields to the request parameter names callers use.
var paramNames = map[string]string{
	"TMDBID":  "tmdbId",
	"Kind":    "type",
	"Season":  "season",
	"Episode": "episode",
}

// NewMovie returns a movie query.
func NewMovie(tmdbID string) Query {
	return Query{TMDBID: tmdbID, Kind: KindMovie}
}

// NewEpisode returns a TV episode query.
func NewEpisode(tmdbID string, season, episode int) Query {
	return Query{TMDBID: tmdbID, Kind: KindTV, Season: &season, Episode: &episode}
}

// ParseQuery builds and validates a Query from request parameters
// tmdbId, type, season, episode and quality.
func ParseQuery(v url.Values) (Query, error) {
	q := Query{
		TMDBID:  strings.TrimSpace(v.Get("tmdbId")),
		Kind:    Kind(strings.ToLower(strings.TrimSpace(v.Get("type")))),
		Quality: v.Get("quality"),
	}

	// Season and episode are ignored for movies, whatever their value.
	if q.Kind == KindTV {
		var err error
		if q.Season, err = optionalInt(v, "season"); err != nil {
			return Query{}, err
		}
		if q.Episode, err = optionalInt(v, "episode"); err != nil {
			return Query{}, err
		}
	}

	if err := q.Validate(); err != nil {
		return Query{}, err
	}
	return q, nil
}

// Validate checks required fields: tmdbId and kind always, season and
// episode when kind is tv.
func (q Query) Validate() error {
	err := validate.Struct(q)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validating query: %w", err)
	}

	fe := verrs[0]
	field := paramNames[fe.Field()]
	switch fe.Tag() {
	case "required":
		return &ValidationError{Field: field, Reason: "is required"}
	case "required_if":
		return &ValidationError{Field: field, Reason: "is required for tv"}
	case "oneof":
		return &ValidationError{Field: field, Reason: "must be movie or tv"}
	default:
		return &ValidationError{Field: field, Reason: "is invalid"}
	}
}

// IsEpisode reports whether q targets a TV episode.
func (q Query) IsEpisode() bool {
	return q.Kind == KindTV
}

// String renders q for logs, e.g. "tv/1399 s1e2".
func (q Query) String() string {
	if q.IsEpisode() && q.Season != nil && q.Episode != nil {
		return fmt.Sprintf("%s/%s s%de%d", q.Kind, q.TMDBID, *q.Season, *q.Episode)
	}
	return fmt.Sprintf("%s/%s", q.Kind, q.TMDBID)
}

func optionalInt(v url.Values, name string) (*int, error) {
	raw := strings.TrimSpace(v.Get(name))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, &ValidationError{Field: name, Reason: "must be an integer"}
	}
	return &n, nil
}
