package artwork

import (
	"strconv"

	"github.com/artfetch/artfetch/types"
)

const (
	repositoryName = "The Metropolitan Museum of Art"
	sourceName     = "met"

	fallbackTitle  = "Untitled"
	fallbackArtist = "Unknown Artist"
)

// normalize flattens one raw upstream record into the cached artwork shape.
// Absent display fields get stable fallbacks so consumers never render blanks.
func normalize(object *types.MuseumObject) *types.Artwork {
	title := object.Title
	if title == "" {
		title = fallbackTitle
	}

	artist := object.ArtistDisplayName
	if artist == "" {
		artist = object.ArtistAlphaSort
	}
	if artist == "" {
		artist = fallbackArtist
	}

	date := object.ObjectDate
	if date == "" && object.ObjectBeginDate != 0 {
		date = strconv.Itoa(object.ObjectBeginDate)
	}

	return &types.Artwork{
		ID:                strconv.Itoa(object.ObjectID),
		Title:             title,
		Artist:            artist,
		ArtistNationality: object.ArtistNationality,
		ArtistBirthDate:   object.ArtistBeginDate,
		ArtistDeathDate:   object.ArtistEndDate,
		ArtistRole:        object.ArtistRole,
		ArtistDisplayBio:  object.ArtistDisplayBio,
		Date:              date,
		Medium:            object.Medium,
		Dimensions:        object.Dimensions,
		Department:        object.Department,
		Culture:           object.Culture,
		Period:            object.Period,
		Dynasty:           object.Dynasty,
		Reign:             object.Reign,
		Portfolio:         object.Portfolio,
		ImageURL:          object.PrimaryImage,
		ImageURLSmall:     object.PrimaryImageSmall,
		ImageURLLarge:     object.PrimaryImage,
		AdditionalImages:  object.AdditionalImages,
		Repository:        repositoryName,
		RepositoryURL:     object.ObjectURL,
		Source:            sourceName,
	}
}
