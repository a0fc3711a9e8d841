package domain

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleRegular Role = "regular"
)

func Roles() []Role {
	return []Role{RoleAdmin, RoleRegular}
}

// SelfUsername addresses the requesting user in user routes. It is
// reserved and can never be registered.
const SelfUsername = "me"

// User is a platform account. Password is input only; stores keep
// HashedPassword. Groups carry permissions when resolved by a store.
type User struct {
	Username       string  `json:"username" validate:"required,excludesall=/\\"`
	Email          string  `json:"email,omitempty" validate:"omitempty,email"`
	FullName       string  `json:"full_name,omitempty"`
	Disabled       bool    `json:"disabled"`
	Role           Role    `json:"role" validate:"omitempty,oneof=admin regular"`
	Groups         []Group `json:"groups"`
	Password       string  `json:"password,omitempty"`
	HashedPassword string  `json:"hashed_password,omitempty"`
}

func (u User) QueryIdentifier() string { return u.Username }
func (u User) QueryType() string       { return "user" }

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

func (u User) GroupNames() []string {
	names := make([]string, 0, len(u.Groups))
	for _, g := range u.Groups {
		names = append(names, g.Name)
	}
	return names
}

func (u User) InGroup(name string) bool {
	for _, g := range u.Groups {
		if g.Name == name {
			return true
		}
	}
	return false
}

// Public strips credentials before a user leaves the process.
func (u User) Public() User {
	u.Password = ""
	u.HashedPassword = ""
	return u
}
