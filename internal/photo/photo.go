// Package photo defines the photo records shown in the grid.
package photo

// DefaultLabel is shown for photos that have no alt description.
const DefaultLabel = "Unsplash photo"

// URLs holds the image URLs of a photo. Either may be empty.
type URLs struct {
	Thumb   string `json:"thumb,omitempty"`
	Regular string `json:"regular,omitempty"`
}

// Photo is one fetched image record. Photos are never modified after they
// are fetched.
type Photo struct {
	ID             string `json:"id"`
	URLs           URLs   `json:"urls"`
	AltDescription string `json:"alt_description,omitempty"`
}

// Label returns the alt description, or DefaultLabel when there is none.
func (p Photo) Label() string {
	if p.AltDescription == "" {
		return DefaultLabel
	}
	return p.AltDescription
}

// User is the author of a photo.
type User struct {
	Name string `json:"name"`
}

// Detail is a photo together with the fields only the detail endpoint returns.
type Detail struct {
	Photo
	Description string `json:"description"`
	User        User   `json:"user"`
	CreatedAt   string `json:"created_at"` // upstream timestamp, kept verbatim
}
