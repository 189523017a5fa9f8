package products

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fungalflux/storefront-backend/internal/pricing"
	"github.com/fungalflux/storefront-backend/pkg/db/models"
	"github.com/fungalflux/storefront-backend/pkg/enums"
	pkgerrors "github.com/fungalflux/storefront-backend/pkg/errors"
)

// Input is the admin product form. Price arrives as a decimal string and is
// converted to cents exactly once, on the way in.
type Input struct {
	Name          string `json:"name" validate:"required,min=3,max=100"`
	Description   string `json:"description" validate:"max=1000"`
	Category      string `json:"category" validate:"required"`
	Price         string `json:"price" validate:"required"`
	ImageURL      string `json:"image_url" validate:"omitempty,url,max=500"`
	StockQuantity int    `json:"stock_quantity" validate:"min=0"`
	Featured      bool   `json:"featured"`
}

// Service exposes the catalog to the storefront and the admin back-office.
type Service interface {
	List(ctx context.Context, filter ListFilter) ([]models.Product, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Create(ctx context.Context, in Input) (*models.Product, error)
	Update(ctx context.Context, id uuid.UUID, in Input) (*models.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo     Repository
	validate *validator.Validate
}

// NewService builds the catalog service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return &service{repo: repo, validate: v}, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]models.Product, error) {
	if filter.Category != "" && !filter.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown product category")
	}
	records, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return records, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return record, nil
}

func (s *service) Create(ctx context.Context, in Input) (*models.Product, error) {
	record, err := s.fromInput(in)
	if err != nil {
		return nil, err
	}
	record.ID = uuid.New()

	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return created, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, in Input) (*models.Product, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	record, err := s.fromInput(in)
	if err != nil {
		return nil, err
	}
	record.ID = existing.ID
	record.CreatedAt = existing.CreatedAt

	updated, err := s.repo.Update(ctx, record)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return updated, nil
}

// Delete removes a product from the catalog. Cart lines and order items keep
// their snapshots; only the canonical listing goes away.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	return nil
}

func (s *service) fromInput(in Input) (*models.Product, error) {
	if err := s.validate.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "product validation")
		}
		fields := make(map[string]string, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields[fe.Field()] = fieldMessage(fe)
		}
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product validation failed").WithDetails(fields)
	}

	category, err := enums.ParseProductCategory(in.Category)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product validation failed").
			WithDetails(map[string]string{"category": "unknown category"})
	}

	priceCents, err := pricing.ParsePrice(in.Price)
	if err != nil {
		typed := pkgerrors.As(err)
		message := "invalid price"
		if typed != nil {
			message = typed.Message()
		}
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product validation failed").
			WithDetails(map[string]string{"price": message})
	}

	return &models.Product{
		Name:          strings.TrimSpace(in.Name),
		Description:   strings.TrimSpace(in.Description),
		Category:      category,
		PriceCents:    priceCents,
		ImageURL:      strings.TrimSpace(in.ImageURL),
		StockQuantity: in.StockQuantity,
		Featured:      in.Featured,
	}, nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "min":
		if fe.Kind() == reflect.Int {
			return "must be at least " + fe.Param()
		}
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "url":
		return "must be a valid URL"
	default:
		return "invalid value"
	}
}
