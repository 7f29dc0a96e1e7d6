package domain

// BadgeDeveloper marks trusted users whose chat input is not sanitized.
const BadgeDeveloper = "DEVELOPER"

// User is resolved by the external user directory and is read-only here.
type User struct {
	ID       int      `json:"id"`
	Username string   `json:"username"`
	Badges   []string `json:"badges"`
}

func (u User) HasBadge(badge string) bool {
	for _, b := range u.Badges {
		if b == badge {
			return true
		}
	}
	return false
}
