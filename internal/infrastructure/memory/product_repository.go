package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/catalog"
)

type productRepository struct{ t *txn }

func (r productRepository) FindByID(ctx context.Context, id string) (*catalog.Product, error) {
	_ = ctx
	p, ok := r.t.product(id)
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return p.Clone(), nil
}

// List returns products ordered by id.
func (r productRepository) List(ctx context.Context) ([]*catalog.Product, error) {
	_ = ctx
	seen := make(map[string]struct{}, len(r.t.store.products)+len(r.t.products))
	out := make([]*catalog.Product, 0, len(r.t.store.products)+len(r.t.products))
	for id, p := range r.t.products {
		seen[id] = struct{}{}
		out = append(out, p.Clone())
	}
	for id, p := range r.t.store.products {
		if _, ok := seen[id]; ok {
			continue
		}
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r productRepository) Save(ctx context.Context, p *catalog.Product) error {
	_ = ctx
	if p == nil || p.ID == "" {
		return fmt.Errorf("product repository: id is required")
	}
	r.t.products[p.ID] = p.Clone()
	return nil
}
