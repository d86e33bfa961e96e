package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sofiabaracatlj/fiap-farms/internal/apierror"
	"github.com/sofiabaracatlj/fiap-farms/internal/dto"
	"github.com/sofiabaracatlj/fiap-farms/internal/infra"
	"github.com/sofiabaracatlj/fiap-farms/internal/model"
	"github.com/sofiabaracatlj/fiap-farms/internal/repository"
)

// ImageUploader stores product images; satisfied by *infra.ImageStore.
type ImageUploader interface {
	UploadProductImage(ctx context.Context, productID string, r io.Reader) (imageURL, thumbURL string, err error)
}

// ErrImagesDisabled is returned by UploadImage when no bucket is configured.
var ErrImagesDisabled = errors.New("upload de imagens não configurado")

type ProductService interface {
	CreateProduct(ctx context.Context, req dto.CreateProductRequest) (*model.Product, error)
	Get(ctx context.Context, id string) (*model.Product, error)
	List(ctx context.Context) (*dto.ProductListResponse, error)
	Update(ctx context.Context, id string, req dto.UpdateProductRequest) (*model.Product, error)
	Delete(ctx context.Context, id string) error
	TopProfitable(ctx context.Context, limit int) ([]model.Product, error)
	UploadImage(ctx context.Context, id string, r io.Reader) (*model.Product, error)
}

type productService struct {
	store  repository.Store
	events infra.EventPublisher
	images ImageUploader
}

// NewProductService wires the catalog use-cases. images may be nil.
func NewProductService(store repository.Store, events infra.EventPublisher, images ImageUploader) ProductService {
	if events == nil {
		events = infra.NopPublisher{}
	}
	return &productService{store: store, events: events, images: images}
}

// ── CreateProduct ────────────────────────────────────────────────────────────

func (s *productService) CreateProduct(ctx context.Context, req dto.CreateProductRequest) (*model.Product, error) {
	if req.UnitPrice.IsNegative() || req.CostPrice.IsNegative() {
		return nil, apierror.Invalid("preços não podem ser negativos")
	}
	now := time.Now()
	p := &model.Product{
		Name:         req.Name,
		Category:     req.Category,
		Description:  req.Description,
		UnitPrice:    req.UnitPrice,
		CostPrice:    req.CostPrice,
		ProfitMargin: model.ProfitMarginFor(req.UnitPrice, req.CostPrice),
		ImageURL:     req.ImageURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Products().Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.events.Publish(ctx, infra.EventProductCreated, p)
	log.Info().Str("product_id", p.ID).Str("name", p.Name).Msg("product created")
	return p, nil
}

func (s *productService) Get(ctx context.Context, id string) (*model.Product, error) {
	return s.store.Products().FindByID(ctx, id)
}

func (s *productService) List(ctx context.Context) (*dto.ProductListResponse, error) {
	list, err := s.store.Products().List(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.ProductListResponse{Data: list, Total: len(list)}, nil
}

// Update applies the non-nil fields and recomputes the margin.
func (s *productService) Update(ctx context.Context, id string, req dto.UpdateProductRequest) (*model.Product, error) {
	p, err := s.store.Products().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Category != nil {
		p.Category = *req.Category
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.UnitPrice != nil {
		p.UnitPrice = *req.UnitPrice
	}
	if req.CostPrice != nil {
		p.CostPrice = *req.CostPrice
	}
	p.ProfitMargin = model.ProfitMarginFor(p.UnitPrice, p.CostPrice)
	p.UpdatedAt = time.Now()
	if err := s.store.Products().Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *productService) Delete(ctx context.Context, id string) error {
	return s.store.Products().Delete(ctx, id)
}

func (s *productService) TopProfitable(ctx context.Context, limit int) ([]model.Product, error) {
	if limit <= 0 {
		limit = 5
	}
	return s.store.Products().TopByProfitMargin(ctx, limit)
}

// UploadImage stores the image and its thumbnail, then points the product at them.
func (s *productService) UploadImage(ctx context.Context, id string, r io.Reader) (*model.Product, error) {
	if s.images == nil {
		return nil, ErrImagesDisabled
	}
	p, err := s.store.Products().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	imageURL, thumbURL, err := s.images.UploadProductImage(ctx, id, r)
	if err != nil {
		return nil, err
	}
	p.ImageURL = imageURL
	p.ThumbnailURL = thumbURL
	p.UpdatedAt = time.Now()
	if err := s.store.Products().Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
