package routing

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Backend names used in decisions and metric labels
const (
	BackendDashboard = "dashboard"
	BackendDownloads = "downloads"
)

const (
	downloadsPrefix = "/downloads/"
	dashboardMount  = "/dashboard"
)

// RouteTable holds the backend base URLs. Dashboard is mandatory and is the
// fallback for every path; Downloads is only consulted for "/downloads/".
type RouteTable struct {
	Dashboard string
	Downloads string
}

// Decision is the routing verdict for one request.
type Decision struct {
	// Backend names the chosen backend (BackendDashboard or BackendDownloads)
	Backend string
	// BackendPath is the backend base URL joined with the forwarded path. It
	// never contains a query string.
	BackendPath string
	// ShouldChallenge asks the caller to answer with an authentication
	// challenge instead of forwarding.
	ShouldChallenge bool
	// RedirectTo, when non-empty, asks the caller to redirect instead of forwarding.
	RedirectTo string
}

// Router maps request paths onto backends. It is immutable and safe for
// concurrent use.
type Router struct {
	dashboard string
	downloads string
}

// NewRouter validates the route table and builds a Router. Trailing slashes
// on base URLs are dropped so joined paths never contain "//".
func NewRouter(table RouteTable) (*Router, error) {
	if strings.TrimSpace(table.Dashboard) == "" {
		return nil, ErrDashboardRequired
	}

	dashboard, err := normalizeBase(table.Dashboard)
	if err != nil {
		return nil, err
	}

	r := &Router{dashboard: dashboard}

	if strings.TrimSpace(table.Downloads) != "" {
		if r.downloads, err = normalizeBase(table.Downloads); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// HasDownloads reports whether a Downloads backend is configured
func (r *Router) HasDownloads() bool {
	return r.downloads != ""
}

// Route produces the routing decision for rawPath. The authenticated flag is
// accepted but does not alter any decision.
func (r *Router) Route(rawPath string, authenticated bool) Decision {
	_ = authenticated

	p := stripQuery(rawPath)

	if r.downloads != "" {
		if rest, ok := matchPrefix(p, downloadsPrefix); ok {
			return Decision{
				Backend:     BackendDownloads,
				BackendPath: r.downloads + rest,
			}
		}
	}

	// the mount is a whole segment; /dashboardapp.js is a root asset
	effective := p
	if p == dashboardMount {
		effective = "/"
	} else if rest, ok := matchPrefix(p, dashboardMount+"/"); ok {
		effective = rest
	}

	return Decision{
		Backend:     BackendDashboard,
		BackendPath: r.dashboard + collapseSpaRoute(effective),
	}
}

// stripQuery drops the query string. Empty input and input without a leading
// slash are normalized to an absolute path.
func stripQuery(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		raw = raw[:i]
	}
	if raw == "" {
		return "/"
	}
	if raw[0] != '/' {
		return "/" + raw
	}
	return raw
}

// matchPrefix reports whether p lies under prefix, which must end in "/", and
// returns the remainder of p including its leading slash.
func matchPrefix(p, prefix string) (string, bool) {
	if !strings.HasPrefix(p, prefix) {
		return "", false
	}
	return p[len(prefix)-1:], true
}

// collapseSpaRoute maps an application route to "/" and a static asset to
// "/" plus its file name. A final segment containing "." is an asset.
func collapseSpaRoute(p string) string {
	cleaned := path.Clean("/" + p)
	last := cleaned[strings.LastIndexByte(cleaned, '/')+1:]
	if last == "" || !strings.Contains(last, ".") {
		return "/"
	}
	return "/" + last
}

func normalizeBase(raw string) (string, error) {
	base := strings.TrimRight(strings.TrimSpace(raw), "/")

	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("%w %q: %v", ErrInvalidBackendURL, raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w %q: must be an absolute http(s) URL", ErrInvalidBackendURL, raw)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return "", fmt.Errorf("%w %q: must not carry a query or fragment", ErrInvalidBackendURL, raw)
	}

	return base, nil
}
