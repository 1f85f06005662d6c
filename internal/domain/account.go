package domain

import "time"

type Role string

const (
	RoleDonatur   Role = "donatur"
	RoleKomunitas Role = "komunitas"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleDonatur, RoleKomunitas, RoleAdmin:
		return true
	}
	return false
}

// SelfAssignable reports whether a caller may pick this role for themselves at registration.
func (r Role) SelfAssignable() bool {
	return r == RoleDonatur || r == RoleKomunitas
}

type Account struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

const KindAccount = "account"

// AccountPublic is the account as clients see it. The identifier is "_id",
// the name the web client reads.
type AccountPublic struct {
	ID        string    `json:"_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *Account) ToPublic() *AccountPublic {
	return &AccountPublic{
		ID:        a.ID,
		Username:  a.Username,
		Email:     a.Email,
		Role:      a.Role,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

type RegisterRequest struct {
	Username     string `json:"username" validate:"required,max=64"`
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required"`
	Role         Role   `json:"role" validate:"required"`
	DisplayName  string `json:"namaLengkap"`
	StatementURL string `json:"pernyataanUrl"`
}

type RegisterResponse struct {
	Message string         `json:"message"`
	User    *AccountPublic `json:"user"`
	Profile *Profile       `json:"detilUser"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResult is what the session issuer hands back to the transport layer.
// Token is delivered out of band (cookie), never in the JSON body.
type LoginResult struct {
	Account   *AccountPublic
	Token     string
	ExpiresAt time.Time
}
