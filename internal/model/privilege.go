package model

// Privilege represents a permission granted through a role
type Privilege struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Code string `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"` // e.g., "order:create"
	Name string `gorm:"type:varchar(100)" json:"name"`
}

const (
	PrivVehicleView   = "vehicle:view"
	PrivVehicleManage = "vehicle:manage"
	PrivOrderCreate   = "order:create"
	PrivOrderViewOwn  = "order:view_own"
	PrivOrderViewAll  = "order:view_all"
	PrivPaymentSync   = "payment:sync"
	PrivPaymentForce  = "payment:force"
	PrivDashboardView = "dashboard:view"
)

// Default privileges for the system
var DefaultPrivileges = []Privilege{
	{Code: PrivVehicleView, Name: "View Vehicle"},
	{Code: PrivVehicleManage, Name: "Manage Vehicle"},
	{Code: PrivOrderCreate, Name: "Create Order"},
	{Code: PrivOrderViewOwn, Name: "View Own Orders"},
	{Code: PrivOrderViewAll, Name: "View All Orders"},
	{Code: PrivPaymentSync, Name: "Sync Payment Status"},
	{Code: PrivPaymentForce, Name: "Force Payment Status"},
	{Code: PrivDashboardView, Name: "View Dashboard"},
}
