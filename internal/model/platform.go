package model

// Platform identifies the catalog-publishing platform behind a source.
// It is detected once from the root page and selects the link rule set
// used for the rest of the crawl.
type Platform string

// Known platforms.
const (
	// PlatformDefault applies the generic "follow every anchor" rules.
	PlatformDefault Platform = "default"

	// PlatformModernCampus is the Modern Campus (Acalog) catalog platform.
	// Course detail pages are captured as leaves and only listing tables
	// are traversed.
	PlatformModernCampus Platform = "modern_campus"
)

// String returns the string representation of the Platform.
func (p Platform) String() string {
	if p == "" {
		return string(PlatformDefault)
	}
	return string(p)
}

// IsValid returns true if this is a known platform.
func (p Platform) IsValid() bool {
	switch p {
	case PlatformDefault, PlatformModernCampus:
		return true
	default:
		return false
	}
}

// Label returns a short human readable label.
func (p Platform) Label() string {
	switch p {
	case PlatformModernCampus:
		return "modern campus"
	default:
		return "generic"
	}
}
