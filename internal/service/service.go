// Package service implements the short-link core: code generation, the
// link registry, the redirect resolver, click ingestion and analytics
// aggregation. External collaborators are consumed through the narrow
// interfaces below.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/atishaytuli/YURL/internal/geo"
	"github.com/atishaytuli/YURL/internal/types"
)

var (
	// ErrInvalidInput marks malformed input rejected before any side
	// effect: a bad URL, a bad alias format, a missing field.
	ErrInvalidInput = errors.New("invalid input")
	// ErrAliasTaken marks a custom alias that already resolves a link.
	ErrAliasTaken = errors.New("alias already taken")
	// ErrNotFound marks a code or id with no matching link.
	ErrNotFound = errors.New("link not found")
)

// LinkStore is the durable relational store for link records. Not-found
// surfaces as sql.ErrNoRows, duplicates as a unique-violation error.
type LinkStore interface {
	CreateLink(ctx context.Context, link *types.Link) error
	GetLink(ctx context.Context, id, ownerID string) (*types.Link, error)
	ResolveCode(ctx context.Context, code string) (*types.ResolvedLink, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	DeleteLink(ctx context.Context, id string) (*types.Link, error)
	ListByOwner(ctx context.Context, ownerID string) ([]types.Link, error)
}

// BlobStore persists generated QR assets.
type BlobStore interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
	Remove(ctx context.Context, name string) error
}

// ResolveCache fronts the store on the resolve hot path. A miss is
// cache.ErrMiss; everything else is a transient failure worth logging.
type ResolveCache interface {
	GetResolved(ctx context.Context, code string) (*types.ResolvedLink, error)
	SetResolved(ctx context.Context, code string, resolved *types.ResolvedLink, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// ClickSink accepts click events without blocking and without failing.
type ClickSink interface {
	PushClick(event types.ClickEvent)
}

// ClickSource reads back the events the sink wrote.
type ClickSource interface {
	EventsForLink(ctx context.Context, linkID string) ([]types.ClickEvent, error)
}

// Locator is the geolocation collaborator.
type Locator interface {
	Locate(ctx context.Context, addr string) (geo.Location, error)
}
