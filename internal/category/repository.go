package category

import (
	"context"
	"sort"

	"github.com/wichananm65/techstore-backend/internal/product"
)

// Repository provides access to category rows.
type Repository interface {
	List(ctx context.Context, limit int) ([]Item, error)
}

// ProductLister is the slice of the product repository the in-memory
// implementation needs.
type ProductLister interface {
	List(ctx context.Context, f product.Filter) ([]product.Product, error)
}

// CatalogRepository groups active products by category in process.
type CatalogRepository struct {
	products ProductLister
}

func NewCatalogRepository(products ProductLister) *CatalogRepository {
	return &CatalogRepository{products: products}
}

func (r *CatalogRepository) List(ctx context.Context, limit int) ([]Item, error) {
	list, err := r.products.List(ctx, product.Filter{})
	if err != nil {
		return nil, err
	}
	counts := map[string]int{}
	for _, p := range list {
		if p.Category == "" {
			continue
		}
		counts[p.Category]++
	}
	out := make([]Item, 0, len(counts))
	for name, n := range counts {
		out = append(out, Item{Name: name, ProductCount: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
