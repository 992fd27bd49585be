package service

import (
	"errors"
	"fmt"

	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/repository"
	"go-pos-ledger/internal/ws"
	"go-pos-ledger/pkg/validator"

	"github.com/google/uuid"
)

var (
	ErrSKUExists       = errors.New("SKU already exists")
	ErrStoreCodeExists = errors.New("store code already exists")
)

// CatalogService manages the plain record-keeping around the ledger:
// products and stores. It holds no inventory logic; stock only changes
// through the StockService.
type CatalogService interface {
	CreateProduct(req *model.Product, actorID string) error
	UpdateProduct(id uuid.UUID, req *model.Product, actorID string) (*model.Product, error)
	DeleteProduct(id uuid.UUID, actorID string) error
	GetAllProducts() ([]model.Product, error)
	GetProductByID(id uuid.UUID) (*model.Product, error)
	// GetProductByBarcode serves register-side scanner lookups.
	GetProductByBarcode(barcode string) (*model.Product, error)
	CreateStore(req *model.Store, actorID string) error
	UpdateStore(id uuid.UUID, req *model.Store, actorID string) (*model.Store, error)
	GetAllStores() ([]model.Store, error)
	GetActiveStores() ([]model.Store, error)
	GetStoreByID(id uuid.UUID) (*model.Store, error)
}

type catalogService struct {
	productRepo repository.ProductRepository
	storeRepo   repository.StoreRepository
	wsHub       *ws.Hub
}

func NewCatalogService(pRepo repository.ProductRepository, sRepo repository.StoreRepository, hub *ws.Hub) CatalogService {
	return &catalogService{
		productRepo: pRepo,
		storeRepo:   sRepo,
		wsHub:       hub,
	}
}

func (s *catalogService) CreateProduct(req *model.Product, actorID string) error {
	// 1. Validasi Struct Dasar
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		firstErr := errs[0]
		return fmt.Errorf("validation failed: field '%s' failed on tag '%s'", firstErr.FailedField, firstErr.Tag)
	}

	// 2. Cek Duplikasi SKU
	existing, _ := s.productRepo.FindBySKU(req.SKU)
	if existing != nil && existing.ID != uuid.Nil {
		return ErrSKUExists
	}

	// 3. Set Audit Fields
	req.CreatedBy = actorID
	req.UpdatedBy = actorID
	req.CreatedByUserID = &actorID
	req.UpdatedByUserID = &actorID

	if err := s.productRepo.Create(req); err != nil {
		return err
	}

	// 4. Broadcast ke WebSocket
	go s.wsHub.BroadcastEvent(ws.Event{
		Type:    "catalog_update",
		Action:  "product_created",
		ActorID: actorID,
		Payload: map[string]interface{}{
			"id":   req.ID,
			"sku":  req.SKU,
			"name": req.Name,
		},
	})

	return nil
}

func (s *catalogService) UpdateProduct(id uuid.UUID, req *model.Product, actorID string) (*model.Product, error) {
	existing, err := s.productRepo.FindByID(id)
	if err != nil {
		return nil, errors.New("product not found")
	}

	if req.SKU != existing.SKU {
		dup, _ := s.productRepo.FindBySKU(req.SKU)
		if dup != nil && dup.ID != uuid.Nil {
			return nil, ErrSKUExists
		}
	}

	// Administrative edits only: catalog prices and thresholds. Per-store
	// stock and average cost are owned by the ledger and never set here.
	existing.SKU = req.SKU
	existing.Barcode = req.Barcode
	existing.Name = req.Name
	existing.Unit = req.Unit
	existing.PurchasePrice = req.PurchasePrice
	existing.SellingPrice = req.SellingPrice
	existing.MinimumStock = req.MinimumStock
	existing.TrackStock = req.TrackStock
	existing.UpdatedBy = actorID
	existing.UpdatedByUserID = &actorID

	if err := s.productRepo.Update(existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// DeleteProduct soft-deletes the catalog entry. Movement history referencing
// the product stays in the ledger untouched.
func (s *catalogService) DeleteProduct(id uuid.UUID, actorID string) error {
	if _, err := s.productRepo.FindByID(id); err != nil {
		return errors.New("product not found")
	}
	return s.productRepo.Delete(id, actorID)
}

func (s *catalogService) GetAllProducts() ([]model.Product, error) {
	return s.productRepo.FindAll()
}

func (s *catalogService) GetProductByID(id uuid.UUID) (*model.Product, error) {
	return s.productRepo.FindByID(id)
}

func (s *catalogService) GetProductByBarcode(barcode string) (*model.Product, error) {
	return s.productRepo.FindByBarcode(barcode)
}

func (s *catalogService) CreateStore(req *model.Store, actorID string) error {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		firstErr := errs[0]
		return fmt.Errorf("validation failed: field '%s' failed on tag '%s'", firstErr.FailedField, firstErr.Tag)
	}

	existing, _ := s.storeRepo.FindByCode(req.Code)
	if existing != nil && existing.ID != uuid.Nil {
		return ErrStoreCodeExists
	}

	req.CreatedBy = actorID
	req.UpdatedBy = actorID
	return s.storeRepo.Create(req)
}

func (s *catalogService) UpdateStore(id uuid.UUID, req *model.Store, actorID string) (*model.Store, error) {
	existing, err := s.storeRepo.FindByID(id)
	if err != nil {
		return nil, errors.New("store not found")
	}

	if req.Code != existing.Code {
		dup, _ := s.storeRepo.FindByCode(req.Code)
		if dup != nil && dup.ID != uuid.Nil {
			return nil, ErrStoreCodeExists
		}
	}

	existing.Code = req.Code
	existing.Name = req.Name
	existing.Address = req.Address
	existing.IsActive = req.IsActive
	existing.UpdatedBy = actorID

	if err := s.storeRepo.Update(existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *catalogService) GetAllStores() ([]model.Store, error) {
	return s.storeRepo.FindAll()
}

func (s *catalogService) GetActiveStores() ([]model.Store, error) {
	return s.storeRepo.FindActive()
}

func (s *catalogService) GetStoreByID(id uuid.UUID) (*model.Store, error) {
	return s.storeRepo.FindByID(id)
}
