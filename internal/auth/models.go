package auth

import "go.mongodb.org/mongo-driver/bson/primitive"

// Role selects which identity collection an account lives in.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) collection() string {
	if r == RoleAdmin {
		return "admins"
	}
	return "users"
}

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Account is an admin or a regular user. Both share one shape.
type Account struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Email          string             `bson:"email" json:"email"`
	PasswordHash   string             `bson:"password" json:"-"`
	FirstName      string             `bson:"firstName" json:"firstName"`
	LastName       string             `bson:"lastName" json:"lastName"`
	DepartmentName string             `bson:"departmentName" json:"departmentName"`
}

type SignupRequest struct {
	Email          string `json:"email" form:"email" validate:"required,email"`
	Password       string `json:"password" form:"password" validate:"required"`
	FirstName      string `json:"firstName" form:"firstName" validate:"required"`
	LastName       string `json:"lastName" form:"lastName" validate:"required"`
	DepartmentName string `json:"departmentName" form:"departmentName" validate:"required"`
}

type SigninRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}
