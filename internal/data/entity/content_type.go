package entity

// ContentType is the closed set of ratable content categories. Dispatch on it
// is always an explicit switch; an unknown value is rejected at the boundary.
type ContentType string

const (
	ContentTypeMovie  ContentType = "movie"
	ContentTypeSong   ContentType = "song"
	ContentTypeBook   ContentType = "book"
	ContentTypeSeries ContentType = "series"
)

// ParseContentType maps a raw string onto the enum. The second return is
// false for anything outside the four known categories.
func ParseContentType(s string) (ContentType, bool) {
	switch ContentType(s) {
	case ContentTypeMovie:
		return ContentTypeMovie, true
	case ContentTypeSong:
		return ContentTypeSong, true
	case ContentTypeBook:
		return ContentTypeBook, true
	case ContentTypeSeries:
		return ContentTypeSeries, true
	default:
		return "", false
	}
}

func (t ContentType) Valid() bool {
	_, ok := ParseContentType(string(t))
	return ok
}

func (t ContentType) String() string {
	return string(t)
}
