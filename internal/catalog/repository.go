package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the requested product does not exist.
var ErrNotFound = errors.New("product not found")

type Repository interface {
	Create(ctx context.Context, product Product) (Product, error)
	Update(ctx context.Context, id int64, product Product) (Product, error)
	Get(ctx context.Context, id int64) (Product, error)
	List(ctx context.Context, limit int) ([]Product, error)

	// RecordView inserts a view row for (userID, productID) unless one
	// already exists, in which case the existing row is returned untouched.
	// The check-and-insert is a single atomic statement; concurrent
	// first-time calls for the same pair produce exactly one row.
	RecordView(ctx context.Context, userID, productID int64) (ProductView, bool, error)

	CountProducts(ctx context.Context) (int64, error)
	TopViewed(ctx context.Context, limit int) ([]TopProduct, error)
	Recent(ctx context.Context, limit int) ([]Product, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const productColumns = `id, name, price, description, image_url, sizes, created_at`

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p   Product
		raw []byte
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Description, &p.ImageURL, &raw, &p.CreatedAt); err != nil {
		return Product{}, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p.Sizes); err != nil {
			return Product{}, err
		}
	}
	if p.Sizes == nil {
		p.Sizes = map[string]int{}
	}
	return p, nil
}

func (r *repository) Create(ctx context.Context, product Product) (Product, error) {
	sizes, err := json.Marshal(sizesOrEmpty(product.Sizes))
	if err != nil {
		return Product{}, err
	}
	query := `INSERT INTO products (name, price, description, image_url, sizes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	now := time.Now()
	err = r.db.QueryRow(ctx, query, product.Name, product.Price, product.Description, product.ImageURL, sizes, now).Scan(&product.ID)
	if err != nil {
		return Product{}, err
	}
	product.CreatedAt = now
	product.Sizes = sizesOrEmpty(product.Sizes)
	return product, nil
}

func (r *repository) Update(ctx context.Context, id int64, product Product) (Product, error) {
	sizes, err := json.Marshal(sizesOrEmpty(product.Sizes))
	if err != nil {
		return Product{}, err
	}
	query := `UPDATE products SET name = $1, price = $2, description = $3, image_url = $4, sizes = $5
		WHERE id = $6 RETURNING created_at`
	err = r.db.QueryRow(ctx, query, product.Name, product.Price, product.Description, product.ImageURL, sizes, id).Scan(&product.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, err
	}
	product.ID = id
	product.Sizes = sizesOrEmpty(product.Sizes)
	return product, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	p, err := scanProduct(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

func (r *repository) List(ctx context.Context, limit int) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *repository) RecordView(ctx context.Context, userID, productID int64) (ProductView, bool, error) {
	insert := `INSERT INTO product_views (user_id, product_id, viewed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id) DO NOTHING
		RETURNING id, user_id, product_id, viewed_at`
	var v ProductView
	err := r.db.QueryRow(ctx, insert, userID, productID, time.Now()).Scan(&v.ID, &v.UserID, &v.ProductID, &v.ViewedAt)
	if err == nil {
		return v, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return ProductView{}, false, err
	}

	// Conflict path: the row already exists, return it as-is.
	sel := `SELECT id, user_id, product_id, viewed_at FROM product_views WHERE user_id = $1 AND product_id = $2`
	err = r.db.QueryRow(ctx, sel, userID, productID).Scan(&v.ID, &v.UserID, &v.ProductID, &v.ViewedAt)
	if err != nil {
		return ProductView{}, false, err
	}
	return v, false, nil
}

func (r *repository) CountProducts(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&total)
	return total, err
}

func (r *repository) TopViewed(ctx context.Context, limit int) ([]TopProduct, error) {
	// Views for products that have since disappeared are skipped by the
	// join. Ties are broken by ascending product id.
	query := `SELECT p.id, p.name, COUNT(DISTINCT v.user_id) AS views
		FROM product_views v
		JOIN products p ON p.id = v.product_id
		GROUP BY p.id, p.name
		ORDER BY views DESC, p.id ASC
		LIMIT $1`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var top []TopProduct
	for rows.Next() {
		var t TopProduct
		if err := rows.Scan(&t.ID, &t.Name, &t.Views); err != nil {
			return nil, err
		}
		top = append(top, t)
	}
	return top, rows.Err()
}

func (r *repository) Recent(ctx context.Context, limit int) ([]Product, error) {
	return r.List(ctx, limit)
}

func sizesOrEmpty(sizes map[string]int) map[string]int {
	if sizes == nil {
		return map[string]int{}
	}
	return sizes
}
