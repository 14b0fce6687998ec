// Package service holds the business rules of the application: validation,
// event triggers and the notification emitter.
package service

// Actor is the authenticated user on whose behalf an operation runs.
// The zero value is an anonymous visitor.
type Actor struct {
	ID uint
}

// NewActor returns the actor for userID.
func NewActor(userID uint) Actor {
	return Actor{ID: userID}
}

// Anonymous reports whether no user is authenticated.
func (a Actor) Anonymous() bool {
	return a.ID == 0
}
