package types

import (
	"time"
)

// Artwork is the normalized record stored in the object cache. A later
// successful fetch for the same id overwrites the whole record, there is no
// field-level merge.
type Artwork struct {
	ID                string   `json:"id"`
	Title             string   `json:"title"`
	Artist            string   `json:"artist"`
	ArtistNationality string   `json:"artist_nationality,omitempty"`
	ArtistBirthDate   string   `json:"artist_birth_date,omitempty"`
	ArtistDeathDate   string   `json:"artist_death_date,omitempty"`
	ArtistRole        string   `json:"artist_role,omitempty"`
	ArtistDisplayBio  string   `json:"artist_display_bio,omitempty"`
	Date              string   `json:"date,omitempty"`
	Medium            string   `json:"medium,omitempty"`
	Dimensions        string   `json:"dimensions,omitempty"`
	Department        string   `json:"department,omitempty"`
	Culture           string   `json:"culture,omitempty"`
	Period            string   `json:"period,omitempty"`
	Dynasty           string   `json:"dynasty,omitempty"`
	Reign             string   `json:"reign,omitempty"`
	Portfolio         string   `json:"portfolio,omitempty"`
	ImageURL          string   `json:"image_url"`
	ImageURLSmall     string   `json:"image_url_small,omitempty"`
	ImageURLLarge     string   `json:"image_url_large,omitempty"`
	AdditionalImages  []string `json:"additional_images,omitempty"`
	Repository        string   `json:"repository"`
	RepositoryURL     string   `json:"repository_url,omitempty"`
	Source            string   `json:"source"`
}

// HasImage reports whether the artwork is usable for page filling.
func (a *Artwork) HasImage() bool {
	return a != nil && a.ImageURL != ""
}

// MuseumObject mirrors the fields consumed from the upstream object endpoint.
type MuseumObject struct {
	ObjectID          int      `json:"objectID"`
	Title             string   `json:"title"`
	ArtistDisplayName string   `json:"artistDisplayName"`
	ArtistAlphaSort   string   `json:"artistAlphaSort"`
	ArtistNationality string   `json:"artistNationality"`
	ArtistBeginDate   string   `json:"artistBeginDate"`
	ArtistEndDate     string   `json:"artistEndDate"`
	ArtistRole        string   `json:"artistRole"`
	ArtistDisplayBio  string   `json:"artistDisplayBio"`
	ObjectDate        string   `json:"objectDate"`
	ObjectBeginDate   int      `json:"objectBeginDate"`
	Medium            string   `json:"medium"`
	Dimensions        string   `json:"dimensions"`
	Department        string   `json:"department"`
	Culture           string   `json:"culture"`
	Period            string   `json:"period"`
	Dynasty           string   `json:"dynasty"`
	Reign             string   `json:"reign"`
	Portfolio         string   `json:"portfolio"`
	PrimaryImage      string   `json:"primaryImage"`
	PrimaryImageSmall string   `json:"primaryImageSmall"`
	AdditionalImages  []string `json:"additionalImages"`
	ObjectURL         string   `json:"objectURL"`
}

type Department struct {
	DepartmentID int    `json:"departmentId"`
	DisplayName  string `json:"displayName"`
}

// Page is the paginated shape returned by the page-level operations.
type Page struct {
	Data        []*Artwork `json:"data"`
	CurrentPage int        `json:"current_page"`
	PerPage     int        `json:"per_page"`
	Total       int        `json:"total"`
	LastPage    int        `json:"last_page"`
}

// SearchQuery carries the upstream search filters.
type SearchQuery struct {
	Query        string
	HasImages    bool
	IsHighlight  *bool
	DepartmentID *int
}

// LockHandle is an advisory, time-bounded exclusion token for one object key.
// It carries no ownership over the cached data.
type LockHandle struct {
	Key        string
	Token      string
	Lease      time.Duration
	AcquiredAt time.Time
}
