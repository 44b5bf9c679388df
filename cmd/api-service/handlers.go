package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/balesniy/reduced.to/internal"
	"github.com/balesniy/reduced.to/internal/analytics"
	"github.com/balesniy/reduced.to/internal/config"
	"github.com/balesniy/reduced.to/internal/keys"
	"github.com/balesniy/reduced.to/internal/logger"
	"github.com/balesniy/reduced.to/internal/resolver"
	"github.com/balesniy/reduced.to/internal/store"
)

// statsReader is satisfied by both the plain and the cached aggregator.
type statsReader interface {
	TotalVisits(ctx context.Context, linkKey string) (int64, error)
	ClicksOverTime(ctx context.Context, linkKey string, days int) ([]analytics.DayBucket, error)
	GroupedByField(ctx context.Context, linkKey, dimension string, days int, include string) ([]analytics.FieldBucket, error)
}

type handlers struct {
	cfg       config.Config
	store     store.Store
	allocator *keys.Allocator
	resolver  *resolver.Resolver
	stats     statsReader
}

type shortenRequest struct {
	URL       string             `json:"url"`
	Key       string             `json:"key,omitempty"`
	Password  string             `json:"password,omitempty"`
	ExpiresAt *time.Time         `json:"expires_at,omitempty"`
	UTM       internal.UTMParams `json:"utm"`
}

func (h *handlers) shorten(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req shortenRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.URL == "" {
		return badRequest(c, "url cannot be empty")
	}
	if parsed, err := url.ParseRequestURI(req.URL); err != nil ||
		(parsed.Scheme != "http" && parsed.Scheme != "https") {
		return badRequest(c, "url must be absolute http(s)")
	}
	if err := req.UTM.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	// Caller identity arrives verified from the auth collaborator; absent
	// means an anonymous, temporary link, which cannot carry a password.
	ownerID, err := ownerFromHeader(c)
	if err != nil {
		return badRequest(c, "invalid owner id")
	}
	if ownerID == nil && req.Password != "" {
		return badRequest(c, "temporary links cannot be password protected")
	}

	key, err := h.allocator.Allocate(ctx, req.Key)
	if err != nil {
		return allocationError(c, err)
	}

	link := &internal.Link{
		Key:            key,
		DestinationURL: req.URL,
		ExpiresAt:      req.ExpiresAt,
		UTM:            req.UTM,
		OwnerID:        ownerID,
	}
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return serverError(c, err)
		}
		hashStr := string(hash)
		link.PasswordHash = &hashStr
	}

	// The unique constraint settles allocation races here.
	if err := h.store.InsertLink(ctx, link); err != nil {
		if errors.Is(err, internal.ErrKeyConflict) {
			return conflict(c, key)
		}
		return serverError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"key":       key,
		"short_url": fmt.Sprintf("%s/%s", strings.TrimRight(h.cfg.AppDomain, "/"), key),
	})
}

func (h *handlers) redirect(c *fiber.Ctx) error {
	resolved, err := h.resolver.Resolve(c.UserContext(), resolver.Request{
		Key:       c.Params("key"),
		Password:  c.Query("password"),
		UserAgent: c.Get(fiber.HeaderUserAgent),
		IPAddress: c.IP(),
		Referer:   c.Get(fiber.HeaderReferer),
	})
	switch {
	case errors.Is(err, internal.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "short URL not found"})
	case errors.Is(err, internal.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "password required"})
	case err != nil:
		return serverError(c, err)
	}
	return c.Redirect(resolved.URL, fiber.StatusFound)
}

func (h *handlers) linkStats(c *fiber.Ctx) error {
	ctx := c.UserContext()
	key := c.Params("key")

	if _, err := h.store.FindLinkByKey(ctx, key); err != nil {
		if errors.Is(err, internal.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "short URL not found"})
		}
		return serverError(c, err)
	}

	days := c.QueryInt("days", 7)
	if days < 1 || days > 365 {
		return badRequest(c, "days must be between 1 and 365")
	}

	total, err := h.stats.TotalVisits(ctx, key)
	if err != nil {
		return serverError(c, err)
	}
	series, err := h.stats.ClicksOverTime(ctx, key, days)
	if err != nil {
		return serverError(c, err)
	}

	response := fiber.Map{
		"key":              key,
		"total_visits":     total,
		"clicks_over_time": series,
	}
	if dimension := c.Query("dimension"); dimension != "" {
		grouped, err := h.stats.GroupedByField(ctx, key, dimension, days, c.Query("include"))
		if err != nil {
			return badRequest(c, err.Error())
		}
		response["grouped"] = grouped
	}
	return c.JSON(response)
}

// globalStats answers the dashboard's headline figure: facts across all links.
func (h *handlers) globalStats(c *fiber.Ctx) error {
	total, err := h.stats.TotalVisits(c.UserContext(), "")
	if err != nil {
		return serverError(c, err)
	}
	return c.JSON(fiber.Map{"total_visits": total})
}

func ownerFromHeader(c *fiber.Ctx) (*uuid.UUID, error) {
	raw := c.Get("X-Owner-Id")
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func allocationError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, internal.ErrInvalidKeyFormat):
		return badRequest(c, "key must be 4-20 alphanumeric or dash characters")
	case errors.Is(err, internal.ErrKeyConflict):
		return conflict(c, "")
	case errors.Is(err, internal.ErrAllocationExhausted):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "could not allocate a key"})
	default:
		return serverError(c, err)
	}
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func conflict(c *fiber.Ctx, key string) error {
	msg := "key already taken"
	if key != "" {
		msg = fmt.Sprintf("key %q already taken", key)
	}
	return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": msg})
}

func serverError(c *fiber.Ctx, err error) error {
	logger.FromContext(c.UserContext()).Error("request failed", "path", c.OriginalURL(), "err", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
}
