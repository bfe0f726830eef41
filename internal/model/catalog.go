package model

// Category is a read-only lookup for item classification.
type Category struct {
	ID   string `json:"_id,omitempty"`
	Name string `json:"name"`
}

// Store is a read-only lookup for the store an item belongs to.
type Store struct {
	ID          string `json:"_id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Location    string `json:"location"`
}
