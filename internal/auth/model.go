package auth

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleAnalyst  Role = "analyst"
	RoleReadOnly Role = "read_only"
)

// Principal is an identity known to the gateway. Principals are loaded once at
// startup and never change while the process runs.
type Principal struct {
	Username    string `json:"username"`
	DisplayName string `json:"full_name"`
	SecretHash  string `json:"-"`
	Role        Role   `json:"role"`
}
