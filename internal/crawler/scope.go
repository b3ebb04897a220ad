package crawler

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// DefaultExcludePatterns are applied to every crawl before the target's own
// patterns. They match URLs of documents and media that never hold catalog
// listings. Caller patterns can add exclusions but cannot remove these.
var DefaultExcludePatterns = []string{
	`(?i)\.pdf(\?.*)?$`,
	`(?i)\.(docx?|xlsx?|pptx?|odt|ods|rtf)(\?.*)?$`,
	`(?i)\.(zip|tar|gz|tgz|rar|7z)(\?.*)?$`,
	`(?i)\.(png|jpe?g|gif|bmp|svg|webp|ico|tiff?)(\?.*)?$`,
}

// scope is the host and path boundary of a crawl.
type scope struct {
	host            string
	pathPrefix      string
	includeExternal bool
}

// newScope derives the crawl boundary from base, which is the target's
// base-exclude URL when set and its root URL otherwise. The path prefix is
// the URL path up to and including its last "/".
func newScope(base string, includeExternal bool) (*scope, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTarget, err)
	}

	prefix := u.Path
	if i := strings.LastIndex(prefix, "/"); i >= 0 {
		prefix = prefix[:i+1]
	} else {
		prefix = "/"
	}

	return &scope{
		host:            strings.ToLower(u.Host),
		pathPrefix:      prefix,
		includeExternal: includeExternal,
	}, nil
}

// contains reports whether rawURL is inside the crawl boundary.
func (s *scope) contains(rawURL string) bool {
	if s.includeExternal {
		return true
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if !strings.EqualFold(u.Host, s.host) {
		return false
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	return strings.HasPrefix(path, s.pathPrefix)
}

// exclusions is a compiled list of URL exclusion patterns.
type exclusions []*regexp.Regexp

// compileExclusions compiles DefaultExcludePatterns followed by patterns.
func compileExclusions(patterns []string) (exclusions, error) {
	all := make([]string, 0, len(DefaultExcludePatterns)+len(patterns))
	all = append(all, DefaultExcludePatterns...)
	all = append(all, patterns...)

	compiled := make(exclusions, 0, len(all))
	for _, p := range all {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidExcludePattern, p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// match reports whether any pattern matches rawURL.
func (e exclusions) match(rawURL string) bool {
	for _, re := range e {
		if re.MatchString(rawURL) {
			return true
		}
	}
	return false
}
