package models

// Requester is whoever holds a reservation. The ID is opaque to the engine.
type Requester struct {
	ID   string
	Name string
}
