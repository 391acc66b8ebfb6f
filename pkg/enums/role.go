package enums

// Role is the platform-wide role carried in access tokens.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleSupplier Role = "supplier"
	RoleAdmin    Role = "admin"
)

var roles = lower("role", RoleCustomer, RoleSupplier, RoleAdmin)

func (r Role) String() string { return string(r) }

func (r Role) IsValid() bool { return roles.has(r) }

// ParseRole is case-insensitive.
func ParseRole(value string) (Role, error) {
	return roles.parse(value)
}
