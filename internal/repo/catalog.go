package repo

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/internal/models"
)

type ProductFilter struct {
	Category string
	Query    string
	Offset   int
	Limit    int
}

func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(term)) + "%"
}

func (r *GormRepo) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// ListOwnedProducts is the seller view: products owned by userID whose name
// contains term, case-insensitively.
func (r *GormRepo) ListOwnedProducts(ctx context.Context, userID uuid.UUID, term string) ([]models.Product, error) {
	q := r.DB.WithContext(ctx).Where("user_id = ?", userID)
	if term = strings.TrimSpace(term); term != "" {
		q = q.Where(`LOWER(name) LIKE ? ESCAPE '\'`, likePattern(term))
	}

	var items []models.Product
	if err := q.Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) ListProducts(ctx context.Context, f ProductFilter) (int64, []models.Product, error) {
	q := r.DB.WithContext(ctx).Model(&models.Product{})
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if term := strings.TrimSpace(f.Query); term != "" {
		q = q.Where(`LOWER(name) LIKE ? ESCAPE '\'`, likePattern(term))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.Product, 0, f.Limit)
	if err := q.Order("created_at DESC").Order("id ASC").Offset(f.Offset).Limit(f.Limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) Categories(ctx context.Context) ([]string, error) {
	var out []string
	if err := r.DB.WithContext(ctx).Model(&models.Product{}).
		Distinct("category").
		Order("category ASC").
		Pluck("category", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormRepo) CreateProduct(ctx context.Context, prod *models.Product) error {
	return r.DB.WithContext(ctx).Create(prod).Error
}

func (r *GormRepo) UpdateProduct(ctx context.Context, id uuid.UUID, fn func(*models.Product) error) (*models.Product, error) {
	var prod models.Product
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&prod).Error; err != nil {
			return err
		}
		if err := fn(&prod); err != nil {
			return err
		}
		return tx.Save(&prod).Error
	})
	if err != nil {
		return nil, err
	}
	return &prod, nil
}

func (r *GormRepo) DeleteProduct(ctx context.Context, id uuid.UUID, check func(*models.Product) error) (*models.Product, error) {
	var prod models.Product
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&prod).Error; err != nil {
			return err
		}
		if err := check(&prod); err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", id).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&prod).Error
	})
	if err != nil {
		return nil, err
	}
	return &prod, nil
}
