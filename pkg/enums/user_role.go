package enums

import "fmt"

// UserRole maps to the user_role enum in Postgres.
type UserRole string

const (
	UserRoleAdmin        UserRole = "admin"
	UserRoleManager      UserRole = "manager"
	UserRolePharmacist   UserRole = "pharmacist"
	UserRoleReceptionist UserRole = "receptionist"
	UserRoleAccountant   UserRole = "accountant"
)

var validUserRoles = []UserRole{
	UserRoleAdmin,
	UserRoleManager,
	UserRolePharmacist,
	UserRoleReceptionist,
	UserRoleAccountant,
}

// InventoryManagerRoles lists the roles that hold inventory-management
// capability. Users in these roles receive every stock alert.
var InventoryManagerRoles = []UserRole{
	UserRoleAdmin,
	UserRoleManager,
	UserRolePharmacist,
}

// String implements fmt.Stringer.
func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known UserRole.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// CanManageInventory reports whether the role may mutate stock and receives
// inventory alerts.
func (r UserRole) CanManageInventory() bool {
	for _, candidate := range InventoryManagerRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
