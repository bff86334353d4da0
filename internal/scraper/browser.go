package scraper

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/stupside/vidrelay/internal/app"
)

const (
	// defaultCollectionWindow is used when CaptureConfig.CollectionWindow is zero.
	defaultCollectionWindow = 3 * time.Second

	windowWidth  = 1366
	windowHeight = 768
)

// defaultExtensions are captured when a CaptureConfig lists none.
var defaultExtensions = []string{".m3u8", ".mp4"}

// streamMIMETypes are MIME types that indicate a streaming response.
var streamMIMETypes = map[string]bool{
	"audio/mpegurl":                 true,
	"audio/x-mpegurl":               true,
	"application/x-mpegurl":         true,
	"application/vnd.apple.mpegurl": true,
	"video/mp4":                     true,
	"video/webm":                    true,
}

// hlsURLPattern matches HTTP(S) URLs containing .m3u8 in markup or console output.
var hlsURLPattern = regexp.MustCompile(`https?://[^\s"'<>\\]+\.m3u8[^\s"'<>\\]*`)

// forwardHeaders are the captured request headers worth replaying to the
// stream host.
var forwardHeaders = []string{"Referer", "Origin", "User-Agent"}

// captured is a stream URL intercepted in the browser with the headers of
// the request that fetched it.
type captured struct {
	URL     string
	Headers map[string]string
}

// candidate is a captured stream URL with a score for ranking.
type candidate struct {
	captured
	score int
}

// collector gathers candidates from browser events.
type collector struct {
	ctx      context.Context
	capture  app.CaptureConfig
	mu       sync.Mutex
	cands    []candidate
	firstHit chan struct{}
}

func newCollector(ctx context.Context, capture app.CaptureConfig) *collector {
	if len(capture.Extensions) == 0 && len(capture.Substrings) == 0 {
		capture.Extensions = defaultExtensions
	}
	return &collector{ctx: ctx, capture: capture, firstHit: make(chan struct{}, 1)}
}

func (c *collector) add(u string, headers map[string]string, source string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if slices.ContainsFunc(c.cands, func(cd candidate) bool { return cd.URL == u }) {
		return
	}
	score := rankURL(u)
	c.cands = append(c.cands, candidate{captured: captured{URL: u, Headers: pickHeaders(headers)}, score: score})

	slog.DebugContext(c.ctx, "captured candidate stream URL", "url", u, "source", source, "score", score)

	select {
	case c.firstHit <- struct{}{}:
	default:
	}
}

func (c *collector) best() (captured, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.cands) == 0 {
		return captured{}, false
	}
	best := slices.MaxFunc(c.cands, func(a, b candidate) int {
		return cmp.Compare(a.score, b.score)
	})
	slog.DebugContext(c.ctx, "selected best stream URL", "url", best.URL, "score", best.score, "total_candidates", len(c.cands))
	return best.captured, true
}

func (c *collector) hasHits() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cands) > 0
}

// listen feeds network requests, stream responses and console messages
// into the collector.
func (c *collector) listen(ev any) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		if matchesPattern(e.Request.URL, c.capture) {
			c.add(e.Request.URL, headersToMap(e.Request.Headers), "request")
		}

	case *network.EventResponseReceived:
		mime := strings.ToLower(e.Response.MimeType)
		if streamMIMETypes[mime] {
			c.add(e.Response.URL, headersToMap(e.Response.RequestHeaders), "mime:"+mime)
		}

	case *runtime.EventConsoleAPICalled:
		for _, arg := range e.Args {
			val := strings.Trim(string(arg.Value), `"`)
			for _, m := range hlsURLPattern.FindAllString(val, -1) {
				c.add(m, nil, "console")
			}
		}
	}
}

// captureStream loads targetURL in headless Chrome and returns the best
// stream URL requested by the page during the collection window.
func captureStream(ctx context.Context, browserCfg app.BrowserConfig, userAgent, targetURL string, capture app.CaptureConfig) (captured, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocatorOpts(browserCfg, userAgent)...)
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	if browserCfg.Timeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(taskCtx, browserCfg.Timeout)
		defer cancel()
	}

	col := newCollector(ctx, capture)
	chromedp.ListenTarget(taskCtx, col.listen)

	slog.DebugContext(ctx, "navigating to target", "url", targetURL)
	err := chromedp.Run(taskCtx,
		runtime.Enable(),
		network.Enable(),
		chromedp.Navigate(targetURL),
	)
	if err != nil {
		if c, ok := col.best(); ok {
			return c, nil
		}
		return captured{}, fmt.Errorf("navigating to %s: %w", targetURL, err)
	}

	if !col.hasHits() {
		// Most players only request the stream once playback starts.
		if err := chromedp.Run(taskCtx, chromedp.MouseClickXY(windowWidth/2, windowHeight/2)); err != nil {
			slog.DebugContext(ctx, "playback click failed", "error", err)
		}
	}

	window := capture.CollectionWindow
	if window == 0 {
		window = defaultCollectionWindow
	}

	select {
	case <-col.firstHit:
		timer := time.NewTimer(window)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-taskCtx.Done():
		}
	case <-taskCtx.Done():
	}

	if c, ok := col.best(); ok {
		return c, nil
	}
	return captured{}, fmt.Errorf("no stream URL captured at %s", targetURL)
}

func allocatorOpts(cfg app.BrowserConfig, userAgent string) []chromedp.ExecAllocatorOption {
	var headlessVal string
	if cfg.Headless {
		headlessVal = "new"
	}

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("headless", headlessVal),
		chromedp.Flag("no-sandbox", cfg.NoSandbox),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("autoplay-policy", "no-user-gesture-required"),
		chromedp.Flag("mute-audio", true),
		chromedp.WindowSize(windowWidth, windowHeight),
		chromedp.UserAgent(userAgent),
	}
	if cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromePath))
	}
	return opts
}

// matchesPattern checks if a URL matches any of the capture patterns.
// Query parameters are stripped so encoded URLs in tracking pixels don't match.
func matchesPattern(u string, capture app.CaptureConfig) bool {
	stripped, _, _ := strings.Cut(u, "?")
	exts := capture.Extensions
	if len(exts) == 0 && len(capture.Substrings) == 0 {
		exts = defaultExtensions
	}
	if slices.Contains(exts, strings.ToLower(path.Ext(stripped))) {
		return true
	}
	return slices.ContainsFunc(capture.Substrings, func(sub string) bool {
		return strings.Contains(stripped, sub)
	})
}

// variantPatterns are URL path substrings that indicate a variant/segment
// rather than a master playlist.
var variantPatterns = []string{
	"/720p/", "/1080p/", "/480p/", "/360p/", "/240p/",
	"_720.", "_1080.", "_480.", "_360.", "_240.",
	"/chunklist", "/media-", "/segment",
}

// rankURL assigns a score to a captured URL for quality/variant selection.
// Higher score = more preferred (master playlists over variants).
func rankURL(rawURL string) int {
	score := 0

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return score
	}

	p := strings.ToLower(parsed.Path)

	if strings.Contains(p, "master") {
		score += 100
	}
	if strings.Contains(p, "playlist") {
		score += 50
	}
	if slices.ContainsFunc(variantPatterns, func(vp string) bool {
		return strings.Contains(p, vp)
	}) {
		score -= 50
	}

	return score
}

// headersToMap converts chromedp network.Headers (map[string]any) to map[string]string.
func headersToMap(h network.Headers) map[string]string {
	if len(h) == 0 {
		return nil
	}
	m := make(map[string]string, len(h))
	for k, v := range h {
		if s, ok := v.(string); ok {
			m[k] = s
		}
	}
	return m
}

// pickHeaders keeps forwardHeaders from h, matched case-insensitively and
// returned in canonical form.
func pickHeaders(h map[string]string) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string)
	for k, v := range h {
		for _, want := range forwardHeaders {
			if strings.EqualFold(k, want) && v != "" {
				out[want] = v
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
