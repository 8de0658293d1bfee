package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/atishaytuli/YURL/internal/cache"
	"github.com/atishaytuli/YURL/internal/database"
	"github.com/atishaytuli/YURL/internal/qr"
	"github.com/atishaytuli/YURL/internal/types"
)

const resolveCacheTTL = 10 * time.Minute

// Registry owns create, read and delete of link records and enforces
// code uniqueness together with the store's unique indexes.
type Registry struct {
	store   LinkStore
	blobs   BlobStore
	cache   ResolveCache
	codes   *CodeGenerator
	baseURL string
}

func NewRegistry(store LinkStore, blobs BlobStore, resolveCache ResolveCache, codes *CodeGenerator, baseURL string) *Registry {
	return &Registry{
		store:   store,
		blobs:   blobs,
		cache:   resolveCache,
		codes:   codes,
		baseURL: baseURL,
	}
}

// CreateLinkParams is the caller-supplied part of a new link.
type CreateLinkParams struct {
	Title       string
	OriginalURL string
	CustomAlias string
	OwnerID     string
}

// Create validates the input, uploads the QR asset and inserts the
// record. The asset goes first; if the insert then fails the asset is
// deleted again, a compensating action rather than a transaction.
func (r *Registry) Create(ctx context.Context, p CreateLinkParams) (*types.Link, error) {
	if p.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if p.OriginalURL == "" {
		return nil, fmt.Errorf("%w: url is required", ErrInvalidInput)
	}
	if p.OwnerID == "" {
		return nil, fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}

	normalized, err := NormalizeURL(p.OriginalURL)
	if err != nil {
		return nil, err
	}

	if p.CustomAlias != "" {
		if !r.codes.ValidAlias(p.CustomAlias) {
			return nil, fmt.Errorf("%w: alias must be alphanumeric, hyphen or underscore, at most 50 chars", ErrInvalidInput)
		}
		available, err := r.codes.CheckAliasAvailable(ctx, p.CustomAlias)
		if err != nil {
			return nil, fmt.Errorf("check alias availability: %w", err)
		}
		if !available {
			return nil, ErrAliasTaken
		}
	}

	code, err := r.codes.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate short code: %w", err)
	}

	link := &types.Link{
		OwnerID:     p.OwnerID,
		Title:       p.Title,
		OriginalURL: normalized,
		ShortCode:   code,
		CustomAlias: p.CustomAlias,
	}

	png, err := qr.PNG(r.ShortURL(link), qr.DefaultSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	assetName := qr.AssetName(code)
	assetURL, err := r.blobs.Put(ctx, assetName, png)
	if err != nil {
		return nil, fmt.Errorf("upload qr asset: %w", err)
	}
	link.QRAssetName = assetName
	link.QRAssetURL = assetURL

	if err := r.store.CreateLink(ctx, link); err != nil {
		// The asset is already up; take it back down so a failed
		// insert leaves no orphaned blob behind.
		if rmErr := r.blobs.Remove(ctx, assetName); rmErr != nil {
			slog.Warn("failed to clean up qr asset after insert failure", "asset", assetName, "error", rmErr)
		}
		if database.IsUniqueViolation(err) && p.CustomAlias != "" {
			return nil, ErrAliasTaken
		}
		return nil, fmt.Errorf("insert link: %w", err)
	}

	return link, nil
}

// Get is an ownership-scoped read: id and owner must both match.
func (r *Registry) Get(ctx context.Context, id, ownerID string) (*types.Link, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	link, err := r.store.GetLink(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return link, nil
}

// Resolve maps a code to its destination, matching short codes and
// custom aliases alike. Ownership-free; this is the redirect hot path,
// fronted by the cache with a short TTL.
func (r *Registry) Resolve(ctx context.Context, code string) (*types.ResolvedLink, error) {
	if code == "" {
		return nil, ErrNotFound
	}

	resolved, err := r.cache.GetResolved(ctx, code)
	if err == nil {
		return resolved, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		slog.Warn("resolve cache error", "error", err)
	}

	resolved, err = r.store.ResolveCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := r.cache.SetResolved(ctx, code, resolved, resolveCacheTTL); err != nil {
		slog.Warn("failed to warm up resolve cache", "error", err)
	}

	return resolved, nil
}

// Delete removes the record, invalidates the cache and then removes the
// QR asset best-effort: an asset that will not go away is logged, not
// surfaced, and never rolls the record back.
func (r *Registry) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	link, err := r.store.DeleteLink(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	keys := []string{link.ShortCode}
	if link.CustomAlias != "" {
		keys = append(keys, link.CustomAlias)
	}
	if err := r.cache.Delete(ctx, keys...); err != nil {
		slog.Warn("failed to invalidate resolve cache", "link_id", link.ID, "error", err)
	}

	if link.QRAssetName != "" {
		if err := r.blobs.Remove(ctx, link.QRAssetName); err != nil {
			slog.Warn("failed to remove qr asset", "asset", link.QRAssetName, "error", err)
		}
	}

	return nil
}

func (r *Registry) ListByOwner(ctx context.Context, ownerID string) ([]types.Link, error) {
	return r.store.ListByOwner(ctx, ownerID)
}

// ShortURL renders the public short URL for a link, preferring the
// custom alias for display.
func (r *Registry) ShortURL(link *types.Link) string {
	return r.baseURL + "/" + link.Code()
}
