package model

// Role represents user roles in the system
type Role struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	Code        string      `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"` // ADMIN, CUSTOMER
	Name        string      `gorm:"type:varchar(100)" json:"name"`
	Description string      `gorm:"type:text" json:"description"`
	Privileges  []Privilege `gorm:"many2many:role_privileges;" json:"privileges,omitempty"`
}

// Role codes as constants
const (
	RoleAdmin    = "ADMIN"
	RoleCustomer = "CUSTOMER"
)

// DefaultRoles defines the default roles in the system
var DefaultRoles = []Role{
	{
		Code:        RoleAdmin,
		Name:        "Administrator",
		Description: "Manages vehicles, orders and payments",
	},
	{
		Code:        RoleCustomer,
		Name:        "Customer",
		Description: "Books vehicles and pays for own orders",
	},
}

// DefaultRolePrivileges lists the privilege codes seeded for each role.
var DefaultRolePrivileges = map[string][]string{
	RoleAdmin: {
		PrivVehicleView, PrivVehicleManage, PrivOrderCreate, PrivOrderViewOwn,
		PrivOrderViewAll, PrivPaymentSync, PrivPaymentForce, PrivDashboardView,
	},
	RoleCustomer: {
		PrivVehicleView, PrivOrderCreate, PrivOrderViewOwn, PrivPaymentSync,
	},
}
