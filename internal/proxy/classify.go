package proxy

import (
	"net/http"
	"strings"
)

// Class is the routing decision for one intercepted request.
type Class string

const (
	// ClassPassthrough requests are forwarded untouched and never cached.
	ClassPassthrough Class = "passthrough"
	// ClassNavigation is a full document load.
	ClassNavigation Class = "navigation"
	// ClassAPI requests are never served from cache; stale catalog or cart
	// data presented as live is worse than an explicit offline signal.
	ClassAPI Class = "api"
	// ClassStatic requests are served stale-while-revalidate.
	ClassStatic Class = "static"
	// ClassRuntime is everything else: network-first with runtime fallback.
	ClassRuntime Class = "runtime"
)

// Classify is a total, synchronous routing function with no side effects.
// The order of checks is significant: method, origin, navigation, API,
// static, other.
func Classify(r *http.Request, manifestPath string) Class {
	if r.Method != http.MethodGet {
		return ClassPassthrough
	}
	// Absolute-form requests addressed to a foreign host pass through.
	if r.URL.Host != "" && r.URL.Host != r.Host {
		return ClassPassthrough
	}
	if isNavigation(r) {
		return ClassNavigation
	}
	path := r.URL.Path
	if strings.HasPrefix(path, "/api/") {
		return ClassAPI
	}
	if strings.HasPrefix(path, "/static/") || path == manifestPath {
		return ClassStatic
	}
	return ClassRuntime
}

func isNavigation(r *http.Request) bool {
	if r.Header.Get("Sec-Fetch-Mode") == "navigate" {
		return true
	}
	// Older clients do not send fetch metadata; a document Accept header on
	// a GET outside the asset and API spaces is the best remaining signal.
	accept := r.Header.Get("Accept")
	if !strings.Contains(accept, "text/html") {
		return false
	}
	return !strings.HasPrefix(r.URL.Path, "/api/") && !strings.HasPrefix(r.URL.Path, "/static/")
}
