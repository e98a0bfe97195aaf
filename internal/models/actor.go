// internal/models/actor.go
package models

// Actor identifies who performs an administrative action.
type Actor struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}
