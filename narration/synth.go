package narration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log/slog"
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/abiiranathan/readalong/book"
)

// Track is a synthesized narration for one page's text.
type Track struct {
	Audio      []byte // encoded audio, typically mp3
	Format     string
	DurationMs float64
	Voice      string
}

// Synthesizer produces narration audio for page text. Failures surface as
// *book.SynthesisError; the page stays readable either way.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) (Track, error)
}

// HTTPConfig configures the HTTP text-to-speech client.
type HTTPConfig struct {
	// BaseURL of the speech service; requests go to BaseURL + "/synthesize".
	BaseURL string

	// Timeout per synthesis request. Default is 15s. A timed-out request
	// is reported as ServiceUnavailable.
	Timeout time.Duration

	// RequestsPerSecond throttles calls to the speech service.
	// Default is 2.
	RequestsPerSecond float64

	// CacheSize is the number of synthesized tracks kept so that flipping
	// back to a recent page does not re-synthesize it. Default is 16.
	CacheSize int

	Client *http.Client
	Logger *slog.Logger
}

func (cfg *HTTPConfig) defaults() {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 16
	}
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
}

// HTTPSynthesizer calls an external text-to-speech service.
type HTTPSynthesizer struct {
	cfg     HTTPConfig
	limiter *rate.Limiter
	cache   *lru.Cache[uint32, Track]
}

// NewHTTPSynthesizer creates a client for the speech service at cfg.BaseURL.
func NewHTTPSynthesizer(cfg HTTPConfig) (*HTTPSynthesizer, error) {
	cfg.defaults()
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("narration: BaseURL is required")
	}

	cache, err := lru.New[uint32, Track](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("narration: track cache: %w", err)
	}

	return &HTTPSynthesizer{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		cache:   cache,
	}, nil
}

type synthesizeRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

type synthesizeResponse struct {
	Audio      []byte  `json:"audio"` // base64 on the wire
	Format     string  `json:"format"`
	DurationMs float64 `json:"durationMs"`
}

// Synthesize produces a narration track for the given text.
func (s *HTTPSynthesizer) Synthesize(ctx context.Context, text, voice string) (Track, error) {
	if strings.TrimSpace(text) == "" {
		return Track{}, &book.SynthesisError{Reason: book.EmptyText}
	}

	key := trackKey(text, voice)
	if track, ok := s.cache.Get(key); ok {
		return track, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	if err := s.limiter.Wait(ctx); err != nil {
		return Track{}, &book.SynthesisError{Reason: book.ServiceUnavailable, Cause: err}
	}

	body, err := json.Marshal(synthesizeRequest{Text: text, Voice: voice})
	if err != nil {
		return Track{}, &book.SynthesisError{Reason: book.ServiceUnavailable, Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.cfg.BaseURL+"/synthesize", bytes.NewReader(body))
	if err != nil {
		return Track{}, &book.SynthesisError{Reason: book.ServiceUnavailable, Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.cfg.Client.Do(req)
	if err != nil {
		s.cfg.Logger.Warn("speech service unreachable", "error", err)
		return Track{}, &book.SynthesisError{Reason: book.ServiceUnavailable, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("speech service returned %s", resp.Status)
		s.cfg.Logger.Warn("speech synthesis failed", "status", resp.Status)
		return Track{}, &book.SynthesisError{Reason: book.ServiceUnavailable, Cause: err}
	}

	var body2 synthesizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body2); err != nil {
		return Track{}, &book.SynthesisError{Reason: book.ServiceUnavailable, Cause: err}
	}
	if len(body2.Audio) == 0 || body2.DurationMs <= 0 {
		err := fmt.Errorf("speech service returned an empty track")
		return Track{}, &book.SynthesisError{Reason: book.ServiceUnavailable, Cause: err}
	}

	track := Track{
		Audio:      body2.Audio,
		Format:     body2.Format,
		DurationMs: body2.DurationMs,
		Voice:      voice,
	}
	s.cache.Add(key, track)

	s.cfg.Logger.Debug("narration synthesized",
		"voice", voice, "durationMs", track.DurationMs, "took", time.Since(start))
	return track, nil
}

// trackKey hashes voice+text so revisited pages hit the cache.
func trackKey(text, voice string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(voice))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return h.Sum32()
}
