// Package signing issues and caches short-lived access URLs for private binaries.
package signing

import (
	"context"
	"sync"
	"time"

	"github.com/courtside/courtside/internal/blob"
	"github.com/courtside/courtside/internal/errs"
)

// Kind selects the TTL ceiling applied to a signed URL.
type Kind string

// Signable object kinds.
const (
	KindVideo     Kind = "video"
	KindThumbnail Kind = "thumbnail"
)

// Hard per-kind TTL ceilings. The broker enforces these regardless of what an
// upstream signer might offer.
const (
	VideoTTLCeiling     = 24 * time.Hour
	ThumbnailTTLCeiling = 7 * 24 * time.Hour
)

// DefaultBatchCap bounds GetBatchURLs request size.
const DefaultBatchCap = 50

// DefaultSafetyMargin keeps a cached URL from being served moments before it expires.
const DefaultSafetyMargin = 5 * time.Minute

// Ref addresses one signable object.
type Ref struct {
	Key  string
	Kind Kind
}

// SignedURL is a URL with its expiry.
type SignedURL struct {
	URL       string
	ExpiresAt time.Time
}

// Broker caches signed URLs keyed by (key, kind). Cache state is explicit per
// instance; independent brokers never share entries.
type Broker struct {
	signer   blob.Signer
	videoTTL time.Duration
	thumbTTL time.Duration
	margin   time.Duration
	maxBatch int
	now      func() time.Time

	mu    sync.Mutex
	cache map[Ref]SignedURL
}

// Option adjusts broker construction.
type Option func(*Broker)

// WithTTLs overrides the per-kind TTLs. Values above the ceilings are clamped.
func WithTTLs(video, thumbnail time.Duration) Option {
	return func(b *Broker) {
		b.videoTTL = video
		b.thumbTTL = thumbnail
	}
}

// WithSafetyMargin overrides the refresh margin.
func WithSafetyMargin(margin time.Duration) Option {
	return func(b *Broker) { b.margin = margin }
}

// WithBatchCap overrides the batch size cap.
func WithBatchCap(n int) Option {
	return func(b *Broker) { b.maxBatch = n }
}

// WithClock injects a clock for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Broker) { b.now = now }
}

// NewBroker constructs a broker with defaulted and ceiling-clamped TTLs.
func NewBroker(signer blob.Signer, opts ...Option) *Broker {
	b := &Broker{
		signer:   signer,
		videoTTL: VideoTTLCeiling,
		thumbTTL: ThumbnailTTLCeiling,
		margin:   DefaultSafetyMargin,
		maxBatch: DefaultBatchCap,
		now:      time.Now,
		cache:    make(map[Ref]SignedURL),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.videoTTL <= 0 || b.videoTTL > VideoTTLCeiling {
		b.videoTTL = VideoTTLCeiling
	}
	if b.thumbTTL <= 0 || b.thumbTTL > ThumbnailTTLCeiling {
		b.thumbTTL = ThumbnailTTLCeiling
	}
	if b.maxBatch <= 0 || b.maxBatch > DefaultBatchCap {
		b.maxBatch = DefaultBatchCap
	}
	if b.margin < 0 {
		b.margin = DefaultSafetyMargin
	}
	return b
}

// GetURL returns a cached URL while it is comfortably valid, otherwise signs a
// fresh one and replaces the cache entry.
func (b *Broker) GetURL(ctx context.Context, key string, kind Kind) (SignedURL, error) {
	return b.resolve(ctx, Ref{Key: key, Kind: kind})
}

// GetBatchURLs resolves each ref independently from cache-or-fetch with at most
// one signing call per distinct uncached ref. Oversized batches are rejected,
// never truncated.
func (b *Broker) GetBatchURLs(ctx context.Context, refs []Ref) (map[Ref]SignedURL, error) {
	if len(refs) > b.maxBatch {
		return nil, errs.ErrBatchTooLarge
	}
	out := make(map[Ref]SignedURL, len(refs))
	for _, ref := range refs {
		if _, done := out[ref]; done {
			continue
		}
		su, err := b.resolve(ctx, ref)
		if err != nil {
			return nil, err
		}
		out[ref] = su
	}
	return out, nil
}

func (b *Broker) resolve(ctx context.Context, ref Ref) (SignedURL, error) {
	now := b.now()

	b.mu.Lock()
	cached, ok := b.cache[ref]
	b.mu.Unlock()
	if ok && now.Before(cached.ExpiresAt.Add(-b.margin)) {
		return cached, nil
	}

	ttl := b.ttlFor(ref.Kind)
	url, err := b.signer.Sign(ctx, ref.Key, ttl)
	if err != nil {
		return SignedURL{}, err
	}
	su := SignedURL{URL: url, ExpiresAt: now.Add(ttl)}

	b.mu.Lock()
	b.cache[ref] = su
	b.mu.Unlock()
	return su, nil
}

func (b *Broker) ttlFor(kind Kind) time.Duration {
	if kind == KindThumbnail {
		return b.thumbTTL
	}
	return b.videoTTL
}
