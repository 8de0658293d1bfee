package types

import "time"

// Link is a single shortening owned by a user. ID and CreatedAt are
// assigned by the store on insert.
type Link struct {
	ID          string    `json:"id" db:"id"`
	OwnerID     string    `json:"owner_id" db:"owner_id"`
	Title       string    `json:"title" db:"title"`
	OriginalURL string    `json:"original_url" db:"original_url"`
	ShortCode   string    `json:"short_code" db:"short_code"`
	CustomAlias string    `json:"custom_alias,omitempty" db:"custom_alias"`
	QRAssetName string    `json:"-" db:"qr_asset_name"`
	QRAssetURL  string    `json:"qr_asset_url" db:"qr_asset_url"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Code returns the identifier shown to users: the custom alias when one
// was chosen, the generated short code otherwise. Both stay resolvable.
func (l *Link) Code() string {
	if l.CustomAlias != "" {
		return l.CustomAlias
	}
	return l.ShortCode
}

// ResolvedLink is the minimal projection the redirect hot path needs.
type ResolvedLink struct {
	ID          string `json:"id" db:"id"`
	OriginalURL string `json:"original_url" db:"original_url"`
}
