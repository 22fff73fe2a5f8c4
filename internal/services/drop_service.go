// Package services – DropService
//
// This file implements DropService, which owns the lifecycle of a drop:
// per-kind validation, identifier and access-key assignment, expiry
// computation, keyed retrieval with lazy expiry, and reply aggregation.
// The four content kinds share one code path; the only per-kind variation
// is the payload shape checked in buildDrop.
package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/zync-backend/internal/domain"
	"github.com/tbourn/zync-backend/internal/observability"
	"github.com/tbourn/zync-backend/internal/repo"
)

const (
	// DefaultTTL applies when the caller omits an expiry.
	DefaultTTL = 24 * time.Hour
	// MaxTTL is the advertised upper bound for a drop's lifetime.
	MaxTTL = 48 * time.Hour

	DefaultIDLength  = 8
	DefaultKeyLength = 6

	// maxTTLSeconds is the longest expiry representable as a time.Duration.
	maxTTLSeconds = math.MaxInt64 / int64(time.Second)

	// maxIDAttempts bounds id regeneration after a store collision.
	maxIDAttempts = 3
)

// DropStore is the document-store contract required by DropService.
// Each kind is an independent namespace. Implementations return
// repo.ErrNotFound for missing ids and repo.ErrDuplicate for id collisions.
type DropStore interface {
	// Insert persists a new drop in kind's namespace.
	Insert(ctx context.Context, kind domain.Kind, d *domain.Drop) error
	// Get fetches a drop by id from kind's namespace.
	Get(ctx context.Context, kind domain.Kind, id string) (*domain.Drop, error)
	// ListReplies returns drops whose ReplyTo is parentID, oldest first.
	ListReplies(ctx context.Context, kind domain.Kind, parentID string) ([]domain.Drop, error)
	// DeleteExpired removes drops with ExpiresAt before nowMillis.
	DeleteExpired(ctx context.Context, kind domain.Kind, nowMillis int64) (int64, error)
}

// Payload carries the kind-specific content of a submission. Only the
// fields belonging to the target kind are read.
type Payload struct {
	Content  string
	URL      string
	Code     string
	Language string
	FileName string
	FileSize *int64
	FileURL  string
}

// Options carries the kind-independent submission settings.
type Options struct {
	// Name is the optional author label; blank means anonymous.
	Name string
	// ExpirySeconds is the requested time-to-live. Nil or zero selects the
	// default.
	ExpirySeconds *int64
	// ReplyTo makes the new drop a reply to the given id.
	ReplyTo string
}

// Created is the result of a successful Create. AccessKey is empty for
// replies and is never obtainable again after this response.
type Created struct {
	ID        string
	AccessKey string
	ExpiresAt int64
}

// Thread is a retrieved root drop (access key stripped) and its live
// replies in creation order.
type Thread struct {
	Drop    domain.Drop
	Replies []domain.Drop
}

// DropService implements create and retrieve for every drop kind.
type DropService struct {
	// Store is the backing document store.
	Store DropStore

	// DefaultTTL applies when no expiry is requested.
	DefaultTTL time.Duration
	// MaxTTL rejects longer expiries when > 0.
	MaxTTL time.Duration
	// IDLength and KeyLength size the generated tokens.
	IDLength  int
	KeyLength int

	// Now is the clock; tests replace it.
	Now func() time.Time
	// Token generates random tokens; tests replace it to force collisions.
	Token func(n int) (string, error)
}

// NewDropService constructs a DropService with the documented defaults.
func NewDropService(store DropStore) *DropService {
	return &DropService{
		Store:      store,
		DefaultTTL: DefaultTTL,
		MaxTTL:     MaxTTL,
		IDLength:   DefaultIDLength,
		KeyLength:  DefaultKeyLength,
		Now:        time.Now,
		Token:      RandomToken,
	}
}

func (s *DropService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *DropService) token(n int) (string, error) {
	if s.Token != nil {
		return s.Token(n)
	}
	return RandomToken(n)
}

// Create validates the payload for kind, assigns an id (and an access key
// for root drops), computes the expiry, and persists the drop.
//
// Errors:
//   - ErrUnknownKind for an unsupported kind.
//   - *ValidationError (errors.Is ErrValidation) for bad input.
//   - Wrapped store errors for persistence failures.
func (s *DropService) Create(ctx context.Context, kind domain.Kind, p Payload, o Options) (_ *Created, err error) {
	ctx, span := observability.StartSpan(ctx, "drops.create", attribute.String("drop.kind", string(kind)))
	defer func() { observability.EndSpan(span, faultOnly(err)) }()

	desc, ok := domain.Describe(kind)
	if !ok {
		return nil, ErrUnknownKind
	}

	replyTo := strings.TrimSpace(o.ReplyTo)
	isReply := replyTo != ""

	d, err := buildDrop(desc, p, isReply)
	if err != nil {
		return nil, err
	}
	ttl, err := s.ttl(o.ExpirySeconds)
	if err != nil {
		return nil, err
	}

	now := s.now()
	d.CreatedAt = now.UnixMilli()
	d.ExpiresAt = now.Add(ttl).UnixMilli()
	if name := strings.TrimSpace(o.Name); name != "" {
		d.Name = &name
	}
	if isReply {
		d.ReplyTo = &replyTo
	} else {
		key, err := s.token(s.KeyLength)
		if err != nil {
			return nil, fmt.Errorf("generate access key: %w", err)
		}
		d.AccessKey = &key
	}

	lg := zerolog.Ctx(ctx)
	for attempt := 1; ; attempt++ {
		id, err := s.token(s.IDLength)
		if err != nil {
			return nil, fmt.Errorf("generate id: %w", err)
		}
		d.ID = id

		err = s.Store.Insert(ctx, kind, d)
		if err == nil {
			break
		}
		if errors.Is(err, repo.ErrDuplicate) && attempt < maxIDAttempts {
			lg.Debug().Str("kind", string(kind)).Int("attempt", attempt).Msg("drop id collision, regenerating")
			continue
		}
		lg.Error().Err(err).Str("kind", string(kind)).Msg("failed to insert drop")
		return nil, fmt.Errorf("insert %s: %w", kind, err)
	}

	observability.DropsCreated.WithLabelValues(string(kind), boolLabel(isReply)).Inc()
	lg.Info().
		Str("kind", string(kind)).
		Str("drop_id", d.ID).
		Bool("reply", isReply).
		Int64("expires_at", d.ExpiresAt).
		Msg("drop created")

	out := &Created{ID: d.ID, ExpiresAt: d.ExpiresAt}
	if d.AccessKey != nil {
		out.AccessKey = *d.AccessKey
	}
	return out, nil
}

// Retrieve loads a drop and its replies.
//
// Checks run in a fixed order: existence, then the access key, then expiry.
// A caller without the right key therefore learns nothing about expiry.
//
// Errors:
//   - ErrUnknownKind, or *ValidationError when id is blank.
//   - ErrNotFound when the id does not exist.
//   - ErrAccessDenied when a key is required and key does not match.
//   - ErrExpired when the drop is past its time-to-live.
//   - Wrapped store errors for persistence failures.
func (s *DropService) Retrieve(ctx context.Context, kind domain.Kind, id, key string) (_ *Thread, err error) {
	ctx, span := observability.StartSpan(ctx, "drops.retrieve", attribute.String("drop.kind", string(kind)))
	defer func() { observability.EndSpan(span, faultOnly(err)) }()

	if !kind.Valid() {
		return nil, ErrUnknownKind
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, invalid("id", "id is required")
	}

	lg := zerolog.Ctx(ctx)
	outcome := func(o string) {
		observability.DropRetrievals.WithLabelValues(string(kind), o).Inc()
		span.SetAttributes(attribute.String("drop.outcome", o))
	}

	d, err := s.Store.Get(ctx, kind, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			outcome("not_found")
			lg.Debug().Str("kind", string(kind)).Str("drop_id", id).Msg("drop not found")
			return nil, ErrNotFound
		}
		outcome("error")
		lg.Error().Err(err).Str("kind", string(kind)).Str("drop_id", id).Msg("failed to load drop")
		return nil, fmt.Errorf("get %s: %w", kind, err)
	}

	if d.Guarded() && subtle.ConstantTimeCompare([]byte(*d.AccessKey), []byte(key)) != 1 {
		outcome("denied")
		return nil, ErrAccessDenied
	}

	now := s.now()
	if d.ExpiredAt(now) {
		outcome("expired")
		lg.Debug().Str("kind", string(kind)).Str("drop_id", id).Int64("expires_at", d.ExpiresAt).Msg("drop expired")
		return nil, ErrExpired
	}

	replies, err := s.Store.ListReplies(ctx, kind, id)
	if err != nil {
		outcome("error")
		lg.Error().Err(err).Str("kind", string(kind)).Str("drop_id", id).Msg("failed to list replies")
		return nil, fmt.Errorf("list %s replies: %w", kind, err)
	}
	live := make([]domain.Drop, 0, len(replies))
	for _, r := range replies {
		if r.ExpiredAt(now) {
			continue
		}
		r.AccessKey = nil
		live = append(live, r)
	}

	d.AccessKey = nil
	outcome("ok")
	return &Thread{Drop: *d, Replies: live}, nil
}

// ttl resolves the requested expiry in seconds to a duration.
func (s *DropService) ttl(seconds *int64) (time.Duration, error) {
	def := s.DefaultTTL
	if def <= 0 {
		def = DefaultTTL
	}
	if seconds == nil || *seconds == 0 {
		return def, nil
	}
	if *seconds < 0 {
		return 0, invalid("expiry", "expiry must be a positive number of seconds")
	}
	// Compare in seconds so the conversion below cannot overflow.
	limit := maxTTLSeconds
	if s.MaxTTL > 0 {
		limit = min(limit, int64(s.MaxTTL/time.Second))
	}
	if *seconds > limit {
		return 0, invalid("expiry", fmt.Sprintf("expiry must not exceed %d seconds", limit))
	}
	return time.Duration(*seconds) * time.Second, nil
}

// buildDrop validates p against the kind's rules and copies the fields that
// belong to that kind into a new Drop.
func buildDrop(desc domain.Descriptor, p Payload, isReply bool) (*domain.Drop, error) {
	d := &domain.Drop{Kind: desc.Kind}

	switch desc.Kind {
	case domain.KindNote:
		if strings.TrimSpace(p.Content) == "" {
			return nil, invalid("content", desc.Label+" content required")
		}
		d.Content = p.Content

	case domain.KindLink:
		if isReply && desc.ReplyUsesContent {
			if p.Content == "" {
				return nil, invalid("content", "Reply content required")
			}
			d.Content = p.Content
			break
		}
		u := strings.TrimSpace(p.URL)
		if u == "" {
			return nil, invalid("url", desc.Label+" URL required")
		}
		d.URL = u

	case domain.KindCode:
		if strings.TrimSpace(p.Code) == "" {
			return nil, invalid("code", desc.Label+" content required")
		}
		d.Code = p.Code
		// Casers are not safe for concurrent use; build one per call.
		d.Language = cases.Lower(language.Und).String(strings.TrimSpace(p.Language))
		if d.Language == "" {
			d.Language = domain.DefaultLanguage
		}

	case domain.KindFile:
		if p.FileName == "" || p.FileURL == "" {
			return nil, invalid("fileName", desc.Label+" name and URL required")
		}
		if p.FileSize != nil && *p.FileSize < 0 {
			return nil, invalid("fileSize", "File size must not be negative")
		}
		d.FileName = p.FileName
		d.FileURL = p.FileURL
		if p.FileSize != nil {
			d.FileSize = *p.FileSize
		}

	default:
		return nil, ErrUnknownKind
	}
	return d, nil
}

// faultOnly drops the caller-facing outcomes so spans only carry an error
// status for store and generator faults.
func faultOnly(err error) error {
	switch {
	case err == nil,
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrExpired),
		errors.Is(err, ErrAccessDenied),
		errors.Is(err, ErrUnknownKind):
		return nil
	}
	return err
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
