package services

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"

	"haldor/internal/models"
	"haldor/internal/monitoring"
	"haldor/internal/repositories"
)

// UserCartKey is the cart key of an authenticated user.
func UserCartKey(userID string) string { return "user:" + userID }

// GuestCartKey is the cart key of an anonymous client identified by X-Cart-ID.
func GuestCartKey(cartID string) string { return "guest:" + cartID }

// MaxLineQuantity bounds the quantity of a single cart line.
const MaxLineQuantity = 999

const cartLockStripes = 256

// CartService owns the carts. Every mutation is written through to the
// repository before it returns.
type CartService struct {
	repo     repositories.CartRepository
	products repositories.ProductRepository

	// locks serialises load-modify-save per cart key, striped by key hash.
	locks [cartLockStripes]sync.Mutex
}

// NewCartService creates a new CartService.
func NewCartService(repo repositories.CartRepository, products repositories.ProductRepository) *CartService {
	return &CartService{repo: repo, products: products}
}

func stripe(cartKey string) int {
	h := fnv.New32a()
	h.Write([]byte(cartKey))
	return int(h.Sum32() % cartLockStripes)
}

func (s *CartService) lock(cartKeys ...string) func() {
	idx := make([]int, 0, len(cartKeys))
	for _, k := range cartKeys {
		idx = append(idx, stripe(k))
	}
	sort.Ints(idx)
	held := make([]int, 0, len(idx))
	for i, n := range idx {
		if i > 0 && n == idx[i-1] {
			continue
		}
		s.locks[n].Lock()
		held = append(held, n)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			s.locks[held[i]].Unlock()
		}
	}
}

// mutate loads the cart, applies fn and saves the result if fn reports a change.
func (s *CartService) mutate(ctx context.Context, cartKey, op string, fn func(lines map[string]models.CartLine) (bool, error)) (*models.Cart, error) {
	unlock := s.lock(cartKey)
	defer unlock()
	return s.apply(ctx, cartKey, op, fn)
}

// apply is mutate for callers already holding the cart lock.
func (s *CartService) apply(ctx context.Context, cartKey, op string, fn func(lines map[string]models.CartLine) (bool, error)) (*models.Cart, error) {
	lines, err := s.repo.Load(ctx, cartKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if lines == nil {
		lines = make(map[string]models.CartLine)
	}
	changed, err := fn(lines)
	if err != nil {
		return nil, err
	}
	if changed {
		if err := s.repo.Save(ctx, cartKey, lines); err != nil {
			return nil, fmt.Errorf("failed to save cart: %w", err)
		}
		monitoring.CartOperationsTotal.WithLabelValues(op).Inc()
	}
	return buildCart(cartKey, lines), nil
}

// AddItem adds qty units of product, merging with an existing line. The line
// keeps the name, slug, image and price the product had when first added.
// qty below 1 counts as 1. A line may not exceed MaxLineQuantity.
func (s *CartService) AddItem(ctx context.Context, cartKey string, product models.Product, qty int) (*models.Cart, error) {
	if qty < 1 {
		qty = 1
	}
	if qty > MaxLineQuantity {
		return nil, fmt.Errorf("%w: %d", ErrQuantityLimit, qty)
	}
	if product.Price <= 0 || product.Price > models.MaxUnitPrice {
		return nil, fmt.Errorf("product %s has invalid price %d", product.ID, product.Price)
	}
	return s.mutate(ctx, cartKey, "add", func(lines map[string]models.CartLine) (bool, error) {
		line, ok := lines[product.ID]
		if !ok {
			line = models.CartLine{
				ProductID: product.ID,
				Slug:      product.Slug,
				Name:      product.Name,
				UnitPrice: product.Price,
				Image:     product.Image,
			}
		}
		if line.Quantity+qty > MaxLineQuantity {
			return false, fmt.Errorf("%w: %d", ErrQuantityLimit, line.Quantity+qty)
		}
		line.Quantity += qty
		lines[product.ID] = line
		return true, nil
	})
}

// AddProduct looks the product up by ID and adds it.
func (s *CartService) AddProduct(ctx context.Context, cartKey, productID string, qty int) (*models.Cart, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	return s.AddItem(ctx, cartKey, *product, qty)
}

// SetQty sets the quantity of an existing line, clamped to at least 1.
// Unknown product IDs leave the cart untouched.
func (s *CartService) SetQty(ctx context.Context, cartKey, productID string, qty int) (*models.Cart, error) {
	if qty < 1 {
		qty = 1
	}
	if qty > MaxLineQuantity {
		return nil, fmt.Errorf("%w: %d", ErrQuantityLimit, qty)
	}
	return s.mutate(ctx, cartKey, "set_qty", func(lines map[string]models.CartLine) (bool, error) {
		line, ok := lines[productID]
		if !ok {
			return false, nil
		}
		line.Quantity = qty
		lines[productID] = line
		return true, nil
	})
}

// RemoveItem deletes a line. Removing an absent line is a no-op.
func (s *CartService) RemoveItem(ctx context.Context, cartKey, productID string) (*models.Cart, error) {
	return s.mutate(ctx, cartKey, "remove", func(lines map[string]models.CartLine) (bool, error) {
		if _, ok := lines[productID]; !ok {
			return false, nil
		}
		delete(lines, productID)
		return true, nil
	})
}

// Clear empties the cart. It is idempotent.
func (s *CartService) Clear(ctx context.Context, cartKey string) error {
	unlock := s.lock(cartKey)
	defer unlock()
	return s.clear(ctx, cartKey)
}

func (s *CartService) clear(ctx context.Context, cartKey string) error {
	if err := s.repo.Delete(ctx, cartKey); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	monitoring.CartOperationsTotal.WithLabelValues("clear").Inc()
	return nil
}

// Get returns the cart with its derived count and subtotal.
func (s *CartService) Get(ctx context.Context, cartKey string) (*models.Cart, error) {
	lines, err := s.repo.Load(ctx, cartKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return buildCart(cartKey, lines), nil
}

// Merge moves every line of the from cart into the to cart, adding
// quantities up to MaxLineQuantity, then empties from. Both carts stay locked
// throughout. Used when a guest logs in.
func (s *CartService) Merge(ctx context.Context, from, to string) (*models.Cart, error) {
	if from == to {
		return s.Get(ctx, to)
	}
	unlock := s.lock(from, to)
	defer unlock()

	src, err := s.repo.Load(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if len(src) == 0 {
		return s.Get(ctx, to)
	}

	cart, err := s.apply(ctx, to, "merge", func(lines map[string]models.CartLine) (bool, error) {
		for id, line := range src {
			if cur, ok := lines[id]; ok {
				cur.Quantity = min(cur.Quantity+line.Quantity, MaxLineQuantity)
				lines[id] = cur
				continue
			}
			line.Quantity = min(line.Quantity, MaxLineQuantity)
			lines[id] = line
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.clear(ctx, from); err != nil {
		return nil, err
	}
	return cart, nil
}

func buildCart(cartKey string, lines map[string]models.CartLine) *models.Cart {
	cart := &models.Cart{Key: cartKey, Lines: make([]models.CartLine, 0, len(lines))}
	for _, line := range lines {
		cart.Lines = append(cart.Lines, line)
		cart.Count += line.Quantity
		cart.Subtotal += line.LineTotal()
	}
	sort.Slice(cart.Lines, func(i, j int) bool {
		if cart.Lines[i].Name != cart.Lines[j].Name {
			return cart.Lines[i].Name < cart.Lines[j].Name
		}
		return cart.Lines[i].ProductID < cart.Lines[j].ProductID
	})
	return cart
}
