package model

// Privilege represents a permission that can be assigned to users
type Privilege struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Code string `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"` // e.g., "product:create"
	Name string `gorm:"type:varchar(100)" json:"name"`                     // e.g., "Create Product"
}

// Default privileges for the system
var DefaultPrivileges = []Privilege{
	// User management
	{Code: "user:view", Name: "View User"},
	{Code: "user:create", Name: "Create User"},
	{Code: "user:update", Name: "Update User"},
	{Code: "user:delete", Name: "Delete User"},
	{Code: "user:update_privilege", Name: "Update User Privileges"},
	// Product catalog
	{Code: "product:view", Name: "View Product"},
	{Code: "product:create", Name: "Create Product"},
	{Code: "product:update", Name: "Update Product"},
	{Code: "product:delete", Name: "Delete Product"},
	// Store management
	{Code: "store:view", Name: "View Store"},
	{Code: "store:create", Name: "Create Store"},
	{Code: "store:update", Name: "Update Store"},
	// Inventory ledger
	{Code: "stock:view", Name: "View Stock"},
	{Code: "stock:mutate", Name: "Record Stock Movement"},
	{Code: "stock:recompute", Name: "Recompute Stock Costs"},
	// Dashboard
	{Code: "dashboard:view", Name: "View Dashboard"},
}
