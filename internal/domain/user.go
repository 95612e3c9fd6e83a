package domain

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User is a storefront account. The password hash never leaves the server.
type User struct {
	ID    string `db:"id" json:"id"`
	Email string `db:"email" json:"email"`
	Name  string `db:"name" json:"name"`
	Hash  string `db:"password_hash" json:"-"`
	Role  string `db:"role" json:"role"`
}
