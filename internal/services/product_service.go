package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"haldor/internal/models"
	"haldor/internal/monitoring"
	"haldor/internal/repositories"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultPageSize = 9
	FeaturedLimit   = 6

	// AllCategories is the category filter value meaning "no filter".
	AllCategories = "Todas"

	catalogTTL = 30 * time.Second
)

// Sort keys accepted by ProductService.List.
const (
	SortRelevance = "relevance"
	SortRating    = "rating"
	SortPriceAsc  = "priceAsc"
	SortPriceDesc = "priceDesc"
	SortNameAsc   = "nameAsc"
)

// ProductService handles business logic related to the catalog.
type ProductService struct {
	repo       repositories.ProductRepository
	categories repositories.CategoryRepository
	validate   *validator.Validate

	group    singleflight.Group
	mu       sync.RWMutex
	snapshot []models.Product
	loadedAt time.Time
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository, categories repositories.CategoryRepository) *ProductService {
	return &ProductService{
		repo:       repo,
		categories: categories,
		validate:   validator.New(),
	}
}

// catalog returns the full product list. Concurrent callers that miss the
// snapshot share one repository read.
func (s *ProductService) catalog(ctx context.Context) ([]models.Product, error) {
	s.mu.RLock()
	if s.snapshot != nil && time.Since(s.loadedAt) < catalogTTL {
		products := s.snapshot
		s.mu.RUnlock()
		return products, nil
	}
	s.mu.RUnlock()

	v, err, _ := s.group.Do("catalog", func() (interface{}, error) {
		monitoring.CatalogLoadsTotal.Inc()
		products, err := s.repo.GetAll(ctx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.snapshot = products
		s.loadedAt = time.Now()
		s.mu.Unlock()
		return products, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return v.([]models.Product), nil
}

func (s *ProductService) invalidate() {
	s.mu.Lock()
	s.snapshot = nil
	s.mu.Unlock()
}

// List filters, sorts and pages the catalog. Page is clamped into
// [1, PageCount] and PageCount is at least 1.
func (s *ProductService) List(ctx context.Context, q models.ProductQuery) (*models.ProductPage, error) {
	all, err := s.catalog(ctx)
	if err != nil {
		return nil, err
	}

	term := strings.ToLower(strings.TrimSpace(q.Search))
	filtered := make([]models.Product, 0, len(all))
	for _, p := range all {
		if matchesCategory(p, q.Category) && matchesText(p, term) && inPriceRange(p, q.MinPrice, q.MaxPrice) {
			filtered = append(filtered, p)
		}
	}

	sortProducts(filtered, q.Sort, term)

	size := q.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	pageCount := int(math.Max(1, math.Ceil(float64(len(filtered))/float64(size))))
	page := q.Page
	if page < 1 {
		page = 1
	}
	if page > pageCount {
		page = pageCount
	}
	start := (page - 1) * size
	end := start + size
	if end > len(filtered) {
		end = len(filtered)
	}

	return &models.ProductPage{
		Items:     filtered[start:end],
		Total:     len(filtered),
		Page:      page,
		PageCount: pageCount,
	}, nil
}

func matchesCategory(p models.Product, category string) bool {
	if category == "" || category == AllCategories {
		return true
	}
	return p.Category.Name == category || p.Category.Slug == category
}

func matchesText(p models.Product, term string) bool {
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Name), term) ||
		strings.Contains(strings.ToLower(p.Slug), term) ||
		strings.Contains(strings.ToLower(p.Category.Name), term) ||
		tagMatches(p.Tags, term)
}

func tagMatches(tags []string, term string) bool {
	for _, tag := range tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}

func inPriceRange(p models.Product, min, max int64) bool {
	return (min <= 0 || p.Price >= min) && (max <= 0 || p.Price <= max)
}

// relevance weighs a name hit twice as much as a category or tag hit; rating
// breaks ties within the same text score.
func relevance(p models.Product, term string) float64 {
	score := 0
	if term != "" {
		if strings.Contains(strings.ToLower(p.Name), term) {
			score += 2
		}
		if strings.Contains(strings.ToLower(p.Category.Name), term) {
			score++
		}
		if tagMatches(p.Tags, term) {
			score++
		}
	}
	return float64(score*10) + p.Rating
}

func sortProducts(products []models.Product, key, term string) {
	var less func(a, b models.Product) bool
	switch key {
	case SortRating:
		less = func(a, b models.Product) bool { return a.Rating > b.Rating }
	case SortPriceAsc:
		less = func(a, b models.Product) bool { return a.Price < b.Price }
	case SortPriceDesc:
		less = func(a, b models.Product) bool { return a.Price > b.Price }
	case SortNameAsc:
		less = func(a, b models.Product) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	default:
		less = func(a, b models.Product) bool { return relevance(a, term) > relevance(b, term) }
	}
	sort.SliceStable(products, func(i, j int) bool { return less(products[i], products[j]) })
}

// Featured returns up to FeaturedLimit featured products.
func (s *ProductService) Featured(ctx context.Context) ([]models.Product, error) {
	all, err := s.catalog(ctx)
	if err != nil {
		return nil, err
	}
	featured := make([]models.Product, 0, FeaturedLimit)
	for _, p := range all {
		if !p.Featured {
			continue
		}
		featured = append(featured, p)
		if len(featured) == FeaturedLimit {
			break
		}
	}
	return featured, nil
}

// GetBySlug retrieves a single product by its slug.
func (s *ProductService) GetBySlug(ctx context.Context, slug string) (*models.Product, error) {
	return s.repo.GetBySlug(ctx, slug)
}

// GetByID retrieves a single product by its ID.
func (s *ProductService) GetByID(ctx context.Context, id string) (*models.Product, error) {
	return s.repo.GetByID(ctx, id)
}

// Categories lists every catalog category.
func (s *ProductService) Categories(ctx context.Context) ([]models.Category, error) {
	return s.categories.GetAll(ctx)
}

// CreateProduct validates and stores a new product. The category must exist.
func (s *ProductService) CreateProduct(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if err := s.validate.Struct(product); err != nil {
		return err
	}
	category, err := s.categories.GetByID(ctx, product.CategoryID)
	if err != nil {
		return fmt.Errorf("category %s: %w", product.CategoryID, err)
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return err
	}
	product.Category = *category
	s.invalidate()
	return nil
}

// UpdateProduct validates and replaces an existing product.
func (s *ProductService) UpdateProduct(ctx context.Context, product *models.Product) error {
	if err := s.validate.Struct(product); err != nil {
		return err
	}
	category, err := s.categories.GetByID(ctx, product.CategoryID)
	if err != nil {
		return fmt.Errorf("category %s: %w", product.CategoryID, err)
	}
	if err := s.repo.Update(ctx, product); err != nil {
		return err
	}
	product.Category = *category
	s.invalidate()
	return nil
}

// DeleteProduct deletes a product by its ID.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate()
	return nil
}
