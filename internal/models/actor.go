package models

import "github.com/google/uuid"

// Actor is the acting principal passed explicitly to every core operation
type Actor struct {
	ID            uuid.UUID `json:"id"`
	Role          Role      `json:"role"`
	FullName      string    `json:"full_name"`
	Authenticated bool      `json:"is_authenticated"`
}

// ActorFor builds an authenticated actor from a stored identity
func ActorFor(i *Identity) Actor {
	return Actor{
		ID:            i.ID,
		Role:          i.Role,
		FullName:      i.FullName,
		Authenticated: true,
	}
}

// IsAdmin reports whether the actor is an authenticated administrator
func (a Actor) IsAdmin() bool {
	return a.Authenticated && a.Role == RoleAdmin
}

// HasRole reports whether the actor is authenticated with the given role
func (a Actor) HasRole(r Role) bool {
	return a.Authenticated && a.Role == r
}

// Is reports whether the actor is the identity with the given id
func (a Actor) Is(id uuid.UUID) bool {
	return a.Authenticated && a.ID != uuid.Nil && a.ID == id
}
