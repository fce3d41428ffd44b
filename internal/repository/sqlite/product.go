package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/adboard/adboard/internal/domain"
)

// ProductRepository implements domain.ProductRepository using SQLite.
type ProductRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new SQLite-backed ProductRepository.
func NewProductRepository(db *DB) *ProductRepository {
	return &ProductRepository{db: db.SqlDB}
}

const productColumns = "id, owner_id, title, content, cost, contact_number, created_date, image_path"

func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO products (owner_id, title, content, cost, contact_number, created_date, image_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		product.OwnerID, product.Title, product.Content, product.Cost,
		product.ContactNumber, product.CreatedDate.UTC(), product.ImagePath,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	product.ID = id
	return nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	return scanProduct(row)
}

func (r *ProductRepository) GetByIDAndOwner(ctx context.Context, id, ownerID int64) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ? AND owner_id = ?`, id, ownerID)
	return scanProduct(row)
}

func (r *ProductRepository) ListAll(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return collectProducts(rows)
}

func (r *ProductRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE owner_id = ? ORDER BY id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list products by owner: %w", err)
	}
	return collectProducts(rows)
}

// Search matches the query as a case-sensitive substring of title or content.
// instr() is used instead of LIKE because LIKE folds ASCII case in SQLite.
func (r *ProductRepository) Search(ctx context.Context, query string) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products
		 WHERE instr(title, ?) > 0 OR instr(content, ?) > 0
		 ORDER BY id`, query, query)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	return collectProducts(rows)
}

func (r *ProductRepository) Update(ctx context.Context, product *domain.Product) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE products
		 SET title = ?, content = ?, cost = ?, contact_number = ?, created_date = ?, image_path = ?
		 WHERE id = ?`,
		product.Title, product.Content, product.Cost, product.ContactNumber,
		product.CreatedDate.UTC(), product.ImagePath, product.ID,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanProduct(row *sql.Row) (*domain.Product, error) {
	p := &domain.Product{}
	err := row.Scan(&p.ID, &p.OwnerID, &p.Title, &p.Content, &p.Cost,
		&p.ContactNumber, &p.CreatedDate, &p.ImagePath)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}
	return p, nil
}

func collectProducts(rows *sql.Rows) ([]domain.Product, error) {
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Title, &p.Content, &p.Cost,
			&p.ContactNumber, &p.CreatedDate, &p.ImagePath); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
