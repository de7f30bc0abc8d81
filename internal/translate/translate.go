// Package translate renders business descriptions in another language
// through the public Google translate endpoint.
package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"resty.dev/v3"

	"stockfetch/internal/fetcher"
	"stockfetch/internal/logging"
	"stockfetch/internal/ratelimit"
	"stockfetch/internal/stock"
)

const (
	// DefaultBaseURL hosts the translate_a endpoint.
	DefaultBaseURL = "https://translate.googleapis.com"

	// MaxChunk is the largest text sent in one request.
	MaxChunk = 4500
)

// Options configure a Translator.
type Options struct {
	BaseURL string
	Source  string
	Target  string
	HTTP    fetcher.Options
	Limiter *ratelimit.Limiter
}

// Translator translates text. A nil *Translator passes text through.
type Translator struct {
	client  *resty.Client
	limiter *ratelimit.Limiter
	source  string
	target  string
	logger  zerolog.Logger
}

// New creates a Translator. Source defaults to "auto".
func New(opts Options) *Translator {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Source == "" {
		opts.Source = "auto"
	}
	return &Translator{
		client:  fetcher.NewHTTPClient(opts.BaseURL, opts.HTTP),
		limiter: opts.Limiter,
		source:  opts.Source,
		target:  opts.Target,
		logger:  logging.NewLogger("translate"),
	}
}

// Translate returns text in the target language, one request per chunk.
func (t *Translator) Translate(ctx context.Context, text string) (string, error) {
	if t == nil || strings.TrimSpace(text) == "" {
		return text, nil
	}

	var b strings.Builder
	for i, part := range Chunk(text, MaxChunk) {
		out, err := t.translateChunk(ctx, part)
		if err != nil {
			return "", fmt.Errorf("translate chunk %d: %w", i+1, err)
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(out)
	}
	return b.String(), nil
}

// Describe translates text. A failed translation returns the original text
// behind a "[translation failed: ...]" marker; only cancellation of ctx is
// returned as an error, since that says nothing about the text.
func (t *Translator) Describe(ctx context.Context, text string) (string, error) {
	out, err := t.Translate(ctx, text)
	if err == nil {
		return out, nil
	}
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "", err
	}
	t.logger.Error().Err(err).Msg("translation error")
	return fmt.Sprintf("[translation failed: %v] %s", err, text), nil
}

func (t *Translator) translateChunk(ctx context.Context, text string) (string, error) {
	if err := t.limiter.Wait(ctx, ratelimit.APITranslate); err != nil {
		return "", err
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"client": "gtx",
			"sl":     t.source,
			"tl":     t.target,
			"dt":     "t",
			"q":      text,
		}).
		Get("/translate_a/single")
	if err := fetcher.CheckResponse(resp, err); err != nil {
		return "", err
	}

	return parseResponse(resp.Bytes())
}

// parseResponse joins the translated segments of
// [[["translated","original",...],...],...].
func parseResponse(body []byte) (string, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || len(raw) == 0 {
		return "", fetcher.NewValidationError("unexpected translate response")
	}

	var segments [][]any
	if err := json.Unmarshal(raw[0], &segments); err != nil {
		return "", fetcher.NewValidationError("unexpected translate segments")
	}

	var b strings.Builder
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		if s, ok := seg[0].(string); ok {
			b.WriteString(s)
		}
	}
	return b.String(), nil
}

// Chunk splits text at sentence ends into pieces of at most max bytes. A
// single sentence longer than max is split on rune boundaries.
func Chunk(text string, max int) []string {
	if len(text) <= max {
		return []string{text}
	}

	var chunks []string
	var cur strings.Builder
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			chunks = append(chunks, s)
		}
		cur.Reset()
	}

	for _, sentence := range sentences(text) {
		if cur.Len()+len(sentence) > max {
			flush()
		}
		for len(sentence) > max {
			cut := runeCut(sentence, max)
			chunks = append(chunks, strings.TrimSpace(sentence[:cut]))
			sentence = sentence[cut:]
		}
		cur.WriteString(sentence)
	}
	flush()
	return chunks
}

// sentences splits after every ". " and keeps the separator.
func sentences(text string) []string {
	var out []string
	for {
		i := strings.Index(text, ". ")
		if i < 0 {
			if text != "" {
				out = append(out, text)
			}
			return out
		}
		out = append(out, text[:i+2])
		text = text[i+2:]
	}
}

// runeCut returns the largest index <= max that falls on a rune boundary.
func runeCut(s string, max int) int {
	cut := 0
	for i := range s {
		if i > max {
			break
		}
		cut = i
	}
	if cut == 0 {
		return max
	}
	return cut
}

type describingFetcher struct {
	next       fetcher.Fetcher[stock.Profile]
	translator *Translator
}

// Wrap translates the Summary of every profile next returns. A nil
// translator returns next unchanged.
func Wrap(next fetcher.Fetcher[stock.Profile], t *Translator) fetcher.Fetcher[stock.Profile] {
	if t == nil {
		return next
	}
	return &describingFetcher{next: next, translator: t}
}

func (d *describingFetcher) Source() string {
	return d.next.Source()
}

func (d *describingFetcher) Fetch(ctx context.Context, symbol string) (stock.Profile, error) {
	p, err := d.next.Fetch(ctx, symbol)
	if err != nil {
		return p, err
	}
	if p.Summary == "" {
		return p, nil
	}
	summary, err := d.translator.Describe(ctx, p.Summary)
	if err != nil {
		return stock.Profile{}, fmt.Errorf("translate summary of %s: %w", symbol, err)
	}
	p.Summary = summary
	return p, nil
}
