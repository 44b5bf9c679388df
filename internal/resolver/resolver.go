// Package resolver turns short keys back into destinations and feeds the
// click pipeline. Resolution is synchronous; click publication is
// fire-and-forget and can never change an already-decided outcome.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/balesniy/reduced.to/internal"
	"github.com/balesniy/reduced.to/internal/clicks"
	"github.com/balesniy/reduced.to/internal/store"
)

// Producer is the click hand-off the resolver publishes to. Publish must not
// block and must not fail the caller.
type Producer interface {
	Publish(e clicks.Event)
}

// Request carries everything the resolution path knows about one incoming
// click. Password comes from the caller; the rest feeds the click event.
type Request struct {
	Key       string
	Password  string
	UserAgent string
	IPAddress string
	Referer   string
}

type Resolved struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

type Resolver struct {
	store    store.Store
	cache    DestinationCache
	producer Producer
	cacheTTL time.Duration
	now      func() time.Time
}

// Option tweaks a Resolver. The zero setup (store only) is fully functional.
type Option func(*Resolver)

// WithCache adds a destination cache for passwordless links.
func WithCache(c DestinationCache, ttl time.Duration) Option {
	return func(r *Resolver) {
		r.cache = c
		r.cacheTTL = ttl
	}
}

// WithProducer wires click publication.
func WithProducer(p Producer) Option {
	return func(r *Resolver) { r.producer = p }
}

func New(s store.Store, opts ...Option) *Resolver {
	r := &Resolver{store: s, cacheTTL: time.Hour, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve looks up the key, applies expiry and password gating and returns
// the destination with the link's UTM set appended. An expired link answers
// exactly like a missing one so existence does not leak. On success a click
// event is published best-effort.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Resolved, error) {
	if url, ok := r.cachedDestination(ctx, req.Key); ok {
		resolved := &Resolved{URL: url, Key: req.Key}
		r.recordClick(req)
		return resolved, nil
	}

	link, err := r.store.FindLinkByKey(ctx, req.Key)
	if err != nil {
		return nil, err
	}
	if link.ExpiredAt(r.now()) {
		return nil, fmt.Errorf("%w: %q", internal.ErrNotFound, req.Key)
	}

	if link.PasswordHash != nil {
		if bcrypt.CompareHashAndPassword([]byte(*link.PasswordHash), []byte(req.Password)) != nil {
			return nil, fmt.Errorf("%w: %q", internal.ErrUnauthorized, req.Key)
		}
	}

	destination, err := AppendUTM(link.DestinationURL, link.UTM)
	if err != nil {
		// A stored destination that no longer parses still resolves
		// as-is rather than breaking the redirect.
		slog.Warn("appending utm parameters", "key", req.Key, "err", err)
		destination = link.DestinationURL
	}

	r.cacheDestination(ctx, link, destination)

	resolved := &Resolved{URL: destination, Key: link.Key}
	r.recordClick(req)
	return resolved, nil
}

// recordClick publishes the click event. Failures here are the producer's to
// log; the resolution result is already decided.
func (r *Resolver) recordClick(req Request) {
	if r.producer == nil {
		return
	}
	r.producer.Publish(clicks.Event{
		LinkKey:   req.Key,
		Timestamp: r.now(),
		UserAgent: req.UserAgent,
		IPAddress: req.IPAddress,
		Referer:   req.Referer,
	})
}

func (r *Resolver) cachedDestination(ctx context.Context, key string) (string, bool) {
	if r.cache == nil {
		return "", false
	}
	return r.cache.Get(ctx, key)
}

// cacheDestination stores the final destination for passwordless links. The
// TTL is capped by time-to-expiry so an expired link never resolves from
// cache.
func (r *Resolver) cacheDestination(ctx context.Context, link *internal.Link, destination string) {
	if r.cache == nil || link.PasswordHash != nil {
		return
	}
	ttl := r.cacheTTL
	if link.ExpiresAt != nil {
		remaining := link.ExpiresAt.Sub(r.now())
		if remaining <= 0 {
			return
		}
		if remaining < ttl {
			ttl = remaining
		}
	}
	r.cache.Set(ctx, link.Key, destination, ttl)
}
