package companycam

// Project represents a CompanyCam project (a job site).
type Project struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Status      string      `json:"status"`
	Address     Address     `json:"address"`
	Coordinates Coordinates `json:"coordinates"`
	PhotoCount  int         `json:"photo_count"`
	CreatedAt   int64       `json:"created_at"`
	UpdatedAt   int64       `json:"updated_at"`
}

// Address is a project's street address.
type Address struct {
	StreetAddress1 string `json:"street_address_1"`
	City           string `json:"city"`
	State          string `json:"state"`
	PostalCode     string `json:"postal_code"`
}

// Coordinates is a GPS position. CompanyCam omits the field entirely
// when a photo has no location, so a nil *Coordinates means no GPS.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Photo represents a CompanyCam photo record.
type Photo struct {
	ID          string       `json:"id"`
	ProjectID   string       `json:"project_id"`
	CreatorID   string       `json:"creator_id"`
	CreatorName string       `json:"creator_name"`
	CapturedAt  int64        `json:"captured_at"` // unix seconds
	CreatedAt   int64        `json:"created_at"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	URIs        []PhotoURI   `json:"uris"`
	Description string       `json:"description"`
}

// PhotoURI is one addressable variant of a photo image.
type PhotoURI struct {
	Type string `json:"type"` // "original", "web", "thumbnail"
	URI  string `json:"uri"`
}

// OriginalURL returns the "original" image variant URL, falling back to the
// first available variant. Empty string if the photo has no URIs at all.
func (p *Photo) OriginalURL() string {
	for _, u := range p.URIs {
		if u.Type == "original" {
			return u.URI
		}
	}
	if len(p.URIs) > 0 {
		return p.URIs[0].URI
	}
	return ""
}

// HasGPS reports whether the photo carries usable coordinates.
func (p *Photo) HasGPS() bool {
	return p.Coordinates != nil && (p.Coordinates.Lat != 0 || p.Coordinates.Lon != 0)
}

// Tag is a label attached to a photo by a field user.
type Tag struct {
	ID           string `json:"id"`
	DisplayValue string `json:"display_value"`
	Value        string `json:"value"`
}

// Comment is a note attached to a photo.
type Comment struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}
