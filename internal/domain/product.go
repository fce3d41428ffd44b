package domain

import (
	"context"
	"time"
)

// Product is a classified listing posted by a user.
type Product struct {
	ID            int64
	OwnerID       int64
	Title         string
	Content       string
	Cost          int64
	ContactNumber string
	CreatedDate   time.Time // refreshed whenever the listing is edited
	ImagePath     string
}

// ProductRepository defines persistence operations for listings.
type ProductRepository interface {
	Create(ctx context.Context, product *Product) error
	GetByID(ctx context.Context, id int64) (*Product, error)
	// GetByIDAndOwner returns the listing only when it is owned by ownerID.
	// A listing owned by someone else is reported as ErrNotFound.
	GetByIDAndOwner(ctx context.Context, id, ownerID int64) (*Product, error)
	ListAll(ctx context.Context) ([]Product, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]Product, error)
	// Search matches the query as a case-sensitive substring of title or content.
	Search(ctx context.Context, query string) ([]Product, error)
	Update(ctx context.Context, product *Product) error
	Delete(ctx context.Context, id int64) error
}
