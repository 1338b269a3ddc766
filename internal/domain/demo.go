package domain

// Demo mode identities. They never reach a backend.
const (
	DemoToken      = "demo-token"
	DemoLoginToken = "demo-token-12345"
)

// DemoUser is the canned profile used while demo mode is on.
func DemoUser() User {
	return User{
		Username: "Demo User",
		Email:    "demo@example.com",
	}
}
