package access

import (
	"context"

	"github.com/xraph/paywall/content"
)

type Store interface {
	GetGrant(ctx context.Context, contentID content.ID, holder string) (*Grant, error)
	// PutGrant creates or overwrites the grant keyed by (ContentID, Holder).
	PutGrant(ctx context.Context, g *Grant) error
	// DeleteGrant removes a grant. Deleting a missing grant is not an error.
	DeleteGrant(ctx context.Context, contentID content.ID, holder string) error
	ListGrants(ctx context.Context, contentID content.ID) ([]*Grant, error)
}
