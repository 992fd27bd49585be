package service

import (
	"time"

	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/repository"

	"github.com/shopspring/decimal"
)

// DashboardStats untuk overview stats
type DashboardStats struct {
	TotalProducts  int64           `json:"total_products"`
	OutOfStock     int64           `json:"out_of_stock"`
	LowStockCount  int             `json:"low_stock_count"`
	TotalValuation decimal.Decimal `json:"total_valuation"`
}

type DashboardService interface {
	GetDailyThroughput(days int) ([]repository.DailyThroughput, error)
	GetDashboardStats() (*DashboardStats, error)
	GetStockAlerts() ([]model.InventoryRecord, error)
	GetRecentMovements(limit int) ([]model.StockMovement, error)
}

type dashboardService struct {
	movementRepo  repository.MovementRepository
	inventoryRepo repository.InventoryRepository
	productRepo   repository.ProductRepository
}

func NewDashboardService(movRepo repository.MovementRepository, invRepo repository.InventoryRepository, pRepo repository.ProductRepository) DashboardService {
	return &dashboardService{
		movementRepo:  movRepo,
		inventoryRepo: invRepo,
		productRepo:   pRepo,
	}
}

func (s *dashboardService) GetDailyThroughput(days int) ([]repository.DailyThroughput, error) {
	endDate := time.Now()
	startDate := endDate.AddDate(0, 0, -days)

	return s.movementRepo.GetDailyThroughput(startDate, endDate)
}

func (s *dashboardService) GetDashboardStats() (*DashboardStats, error) {
	products, err := s.productRepo.FindAll()
	if err != nil {
		return nil, err
	}

	outOfStock, err := s.inventoryRepo.CountOutOfStock()
	if err != nil {
		return nil, err
	}

	valuation, err := s.inventoryRepo.TotalStockValue()
	if err != nil {
		return nil, err
	}

	// Low-stock needs the effective minimum (store override or catalog
	// default), so it is derived in Go rather than a flat SQL comparison.
	records, err := s.inventoryRepo.ListAll()
	if err != nil {
		return nil, err
	}
	lowStock := 0
	for i := range records {
		switch records[i].AlertStatus() {
		case model.StockStatusLow, model.StockStatusWarning:
			lowStock++
		}
	}

	return &DashboardStats{
		TotalProducts:  int64(len(products)),
		OutOfStock:     outOfStock,
		LowStockCount:  lowStock,
		TotalValuation: valuation,
	}, nil
}

func (s *dashboardService) GetRecentMovements(limit int) ([]model.StockMovement, error) {
	return s.movementRepo.FindRecent(limit)
}

func (s *dashboardService) GetStockAlerts() ([]model.InventoryRecord, error) {
	records, err := s.inventoryRepo.ListAll()
	if err != nil {
		return nil, err
	}

	var alerts []model.InventoryRecord
	for i := range records {
		if records[i].AlertStatus() != model.StockStatusOK {
			alerts = append(alerts, records[i])
		}
	}
	return alerts, nil
}
