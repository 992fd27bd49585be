package repository

import (
	"go-pos-ledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StoreRepository interface {
	Create(store *model.Store) error
	FindAll() ([]model.Store, error)
	FindActive() ([]model.Store, error)
	FindByID(id uuid.UUID) (*model.Store, error)
	FindByCode(code string) (*model.Store, error)
	Update(store *model.Store) error
}

type storeRepo struct {
	db *gorm.DB
}

func NewStoreRepo(db *gorm.DB) StoreRepository {
	return &storeRepo{db}
}

func (r *storeRepo) Create(store *model.Store) error {
	return r.db.Create(store).Error
}

func (r *storeRepo) FindAll() ([]model.Store, error) {
	var stores []model.Store
	err := r.db.Order("code ASC").Find(&stores).Error
	return stores, err
}

func (r *storeRepo) FindActive() ([]model.Store, error) {
	var stores []model.Store
	err := r.db.Where("is_active = ?", true).Order("code ASC").Find(&stores).Error
	return stores, err
}

func (r *storeRepo) FindByID(id uuid.UUID) (*model.Store, error) {
	var store model.Store
	err := r.db.First(&store, "id = ?", id).Error
	return &store, err
}

func (r *storeRepo) FindByCode(code string) (*model.Store, error) {
	var store model.Store
	err := r.db.First(&store, "code = ?", code).Error
	return &store, err
}

func (r *storeRepo) Update(store *model.Store) error {
	return r.db.Save(store).Error
}
