package crawler

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/coursecrawl/internal/model"
)

// Modern Campus (Acalog) markup markers.
const (
	modernCampusDetailPage   = "preview_course_nopop.php"
	modernCampusListingLinks = "table.table_default td a[href]"
	modernCampusCatalogMenu  = "#select_catalog, select[name='catalog']"
)

// PageLinks are the links a rule set takes from one page.
type PageLinks struct {
	// Follow are candidate frontier links, in document order.
	Follow []string

	// Capture are leaf pages recorded straight into the result without
	// being fetched.
	Capture []string
}

// LinkRules extracts candidate links from a fetched page.
// Scope and exclusion filtering are applied by the Spider afterwards.
type LinkRules interface {
	// Platform is the platform these rules serve.
	Platform() model.Platform

	// Extract returns the links of the page at pageURL.
	Extract(pageURL, html string) (*PageLinks, error)
}

// RulesFor returns the rule set for platform. Unknown platforms get the
// default rules.
func RulesFor(platform model.Platform) LinkRules {
	if platform == model.PlatformModernCampus {
		return modernCampusRules{}
	}
	return defaultRules{}
}

// DetectPlatform inspects the root page of a catalog and reports which
// platform serves it.
func DetectPlatform(html string) model.Platform {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return model.PlatformDefault
	}

	if doc.Find(modernCampusCatalogMenu).Length() > 0 {
		return model.PlatformModernCampus
	}

	lower := strings.ToLower(html)
	if strings.Contains(lower, "acalog") || strings.Contains(lower, "modern campus catalog") {
		return model.PlatformModernCampus
	}

	found := false
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href := strings.ToLower(a.AttrOr("href", ""))
		if strings.Contains(href, "content.php") && strings.Contains(href, "catoid=") {
			found = true
			return false
		}
		return true
	})
	if found {
		return model.PlatformModernCampus
	}

	return model.PlatformDefault
}

// defaultRules follows every anchor on the page.
type defaultRules struct{}

func (defaultRules) Platform() model.Platform {
	return model.PlatformDefault
}

func (defaultRules) Extract(pageURL, html string) (*PageLinks, error) {
	parser, err := NewParser(pageURL)
	if err != nil {
		return nil, err
	}

	result, err := parser.Parse(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", pageURL, err)
	}

	return &PageLinks{Follow: result.Links}, nil
}

// modernCampusRules captures course detail pages and follows only the
// course listing tables.
type modernCampusRules struct{}

func (modernCampusRules) Platform() model.Platform {
	return model.PlatformModernCampus
}

func (modernCampusRules) Extract(pageURL, html string) (*PageLinks, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", pageURL, err)
	}

	links := &PageLinks{
		Follow:  make([]string, 0),
		Capture: make([]string, 0),
	}
	seen := make(map[string]bool)

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		link := resolveLink(base, a.AttrOr("href", ""))
		if link == "" || seen[link] || !isModernCampusDetail(link) {
			return
		}
		seen[link] = true
		links.Capture = append(links.Capture, link)
	})

	doc.Find(modernCampusListingLinks).Each(func(_ int, a *goquery.Selection) {
		link := resolveLink(base, a.AttrOr("href", ""))
		if link == "" || seen[link] {
			return
		}
		seen[link] = true
		links.Follow = append(links.Follow, link)
	})

	return links, nil
}

func isModernCampusDetail(rawURL string) bool {
	return strings.Contains(strings.ToLower(rawURL), modernCampusDetailPage)
}
