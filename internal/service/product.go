package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adboard/adboard/internal/domain"
	"github.com/gabriel-vasile/mimetype"
)

// PlaceholderImage is the shared image recorded for listings posted
// without an upload. The file ships with the deployment under the
// storage root and is never deleted.
const PlaceholderImage = "net-photo.png"

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// ProductInput carries the user-editable fields of a listing.
type ProductInput struct {
	Title         string
	Content       string
	Cost          int64
	ContactNumber string
}

// ImageUpload carries the bytes and original name of an uploaded image.
type ImageUpload struct {
	Filename string
	Data     []byte
}

// ProductService handles the listing lifecycle: creation, ownership-checked
// mutation and deletion, public reads, and search.
type ProductService struct {
	products       domain.ProductRepository
	files          domain.FileStore
	maxUploadBytes int64
}

// NewProductService creates a new ProductService.
func NewProductService(products domain.ProductRepository, files domain.FileStore, maxUploadBytes int64) *ProductService {
	return &ProductService{products: products, files: files, maxUploadBytes: maxUploadBytes}
}

// Create persists a new listing owned by ownerID. When an image is uploaded
// it is stored under a collision-resistant name; otherwise the shared
// placeholder is recorded. If the insert fails after the file was written,
// the file is removed again.
func (s *ProductService) Create(ctx context.Context, ownerID int64, input ProductInput, upload *ImageUpload) (*domain.Product, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	imagePath := PlaceholderImage
	if upload != nil {
		name, err := s.saveImage(ctx, ownerID, upload)
		if err != nil {
			return nil, err
		}
		imagePath = name
	}

	product := &domain.Product{
		OwnerID:       ownerID,
		Title:         input.Title,
		Content:       input.Content,
		Cost:          input.Cost,
		ContactNumber: input.ContactNumber,
		CreatedDate:   time.Now(),
		ImagePath:     imagePath,
	}

	if err := s.products.Create(ctx, product); err != nil {
		if imagePath != PlaceholderImage {
			// Best-effort cleanup of the stored file.
			s.files.Delete(ctx, imagePath)
		}
		return nil, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

// GetForEdit loads a listing for editing by its owner. A listing that does
// not exist and a listing owned by someone else are both reported as
// ErrNotFound, so this path never reveals whether the id exists.
func (s *ProductService) GetForEdit(ctx context.Context, id, requesterID int64) (*domain.Product, error) {
	return s.products.GetByIDAndOwner(ctx, id, requesterID)
}

// Update overwrites the listing's fields, refreshes its created date, and
// replaces the image when a new upload is present. The same ownership rule
// as GetForEdit applies. The replaced image file is deleted best-effort.
func (s *ProductService) Update(ctx context.Context, id, requesterID int64, input ProductInput, upload *ImageUpload) (*domain.Product, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	product, err := s.products.GetByIDAndOwner(ctx, id, requesterID)
	if err != nil {
		return nil, err
	}

	oldImage := product.ImagePath
	newImage := ""
	if upload != nil {
		name, err := s.saveImage(ctx, requesterID, upload)
		if err != nil {
			return nil, err
		}
		newImage = name
		product.ImagePath = name
	}

	product.Title = input.Title
	product.Content = input.Content
	product.Cost = input.Cost
	product.ContactNumber = input.ContactNumber
	product.CreatedDate = time.Now()

	if err := s.products.Update(ctx, product); err != nil {
		if newImage != "" {
			s.files.Delete(ctx, newImage)
		}
		return nil, fmt.Errorf("update product: %w", err)
	}

	if newImage != "" && oldImage != PlaceholderImage {
		// The old file is no longer referenced by any row.
		s.files.Delete(ctx, oldImage)
	}

	return product, nil
}

// Delete removes a listing. A listing that does not exist or is owned by
// someone else is reported as ErrForbidden.
func (s *ProductService) Delete(ctx context.Context, id, requesterID int64) error {
	product, err := s.products.GetByIDAndOwner(ctx, id, requesterID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrForbidden
		}
		return err
	}

	if err := s.products.Delete(ctx, product.ID); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	if product.ImagePath != PlaceholderImage {
		s.files.Delete(ctx, product.ImagePath)
	}

	return nil
}

// GetDetail returns a listing for public display. No ownership check.
func (s *ProductService) GetDetail(ctx context.Context, id int64) (*domain.Product, error) {
	return s.products.GetByID(ctx, id)
}

// ListByOwner returns the requester's own listings. An owner with zero
// listings is reported as ErrNotFound rather than an empty slice.
func (s *ProductService) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Product, error) {
	products, err := s.products.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, domain.ErrNotFound
	}
	return products, nil
}

// ListAll returns every listing in insertion order.
func (s *ProductService) ListAll(ctx context.Context) ([]domain.Product, error) {
	return s.products.ListAll(ctx)
}

// Search returns listings whose title or content contains the query as a
// case-sensitive substring.
func (s *ProductService) Search(ctx context.Context, query string) ([]domain.Product, error) {
	if query == "" {
		return s.products.ListAll(ctx)
	}
	return s.products.Search(ctx, query)
}

// GetImage returns stored image bytes by key.
func (s *ProductService) GetImage(ctx context.Context, key string) ([]byte, error) {
	return s.files.Get(ctx, key)
}

func (s *ProductService) saveImage(ctx context.Context, ownerID int64, upload *ImageUpload) (string, error) {
	if len(upload.Data) == 0 {
		return "", fmt.Errorf("%w: image file is empty", domain.ErrInvalidInput)
	}
	if int64(len(upload.Data)) > s.maxUploadBytes {
		return "", fmt.Errorf("%w: image exceeds %d byte limit", domain.ErrInvalidInput, s.maxUploadBytes)
	}

	mt := mimetype.Detect(upload.Data)
	if !allowedImageTypes[mt.String()] {
		return "", fmt.Errorf("%w: unsupported image format %s", domain.ErrInvalidInput, mt.String())
	}

	name := imageFileName(ownerID, time.Now(), upload.Filename)
	if err := s.files.Save(ctx, name, upload.Data); err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	return name, nil
}

// imageFileName derives the stored filename for an upload: the sanitized
// original name joined with a microsecond timestamp, prefixed by the SHA-1
// digest of that string together with the uploader's id. Hash, timestamp,
// and uploader id are the sole collision-avoidance mechanism.
func imageFileName(ownerID int64, now time.Time, original string) string {
	stamp := fmt.Sprintf("%s_%06d", now.Format("2006_01_02_15_04_05"), now.Nanosecond()/1000)
	suffix := stamp + "_" + filepath.Base(original)
	sum := sha1.Sum([]byte(strconv.FormatInt(ownerID, 10) + suffix))
	return hex.EncodeToString(sum[:]) + "_" + suffix
}

func validateInput(input ProductInput) error {
	if input.Title == "" {
		return fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}
	if input.Content == "" {
		return fmt.Errorf("%w: content is required", domain.ErrInvalidInput)
	}
	if input.Cost < 0 {
		return fmt.Errorf("%w: cost must not be negative", domain.ErrInvalidInput)
	}
	return nil
}
