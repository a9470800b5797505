// Package partition implements the PartitionKey / PartitionPolicy scheme
// used to further key storage areas beyond (zone, origin) when a zone wants
// top-level-site isolation.
package partition

import (
	"net/url"
	"strings"
)

// Policy selects how a Key is derived from a navigated URL.
type Policy int

const (
	// PolicyNone never partitions beyond (zone, origin).
	PolicyNone Policy = iota
	// PolicyTopLevelOrigin partitions by the top-level navigation origin.
	PolicyTopLevelOrigin
)

// Key is the tagged PartitionKey value: either unset, or a top-level
// origin string (scheme://host[:port]).
type Key struct {
	isTopLevel bool
	origin     string
}

// None is the zero-value, unpartitioned key.
var None = Key{}

// TopLevel builds a partitioned key from an origin string.
func TopLevel(origin string) Key {
	return Key{isTopLevel: true, origin: origin}
}

// IsNone reports whether k carries no partitioning.
func (k Key) IsNone() bool { return !k.isTopLevel }

// Origin returns the partitioned origin and whether k actually carries one.
func (k Key) Origin() (string, bool) {
	return k.origin, k.isTopLevel
}

func (k Key) String() string {
	if !k.isTopLevel {
		return ""
	}
	return k.origin
}

// FromURLString derives a Key the way the engine does when parsing a
// persisted/serialized key: empty string means None, otherwise the origin
// of the parsed URL. A malformed URL also degrades to None rather than
// panicking — callers at the edge (config, wire formats) should validate
// first if that matters to them.
func FromURLString(s string) Key {
	if s == "" {
		return None
	}
	u, err := url.Parse(s)
	if err != nil {
		return None
	}
	return TopLevel(OriginOf(u))
}

// Compute derives the effective PartitionKey for a navigation, given the
// zone/tab's policy.
func Compute(u *url.URL, p Policy) Key {
	switch p {
	case PolicyTopLevelOrigin:
		return TopLevel(OriginOf(u))
	default:
		return None
	}
}

// OriginOf renders the ASCII scheme://host[:port] origin of u, eliding the
// scheme's default port the way url.Origin does in the original engine.
func OriginOf(u *url.URL) string {
	host := u.Hostname()
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	port := u.Port()
	if port != "" && !isDefaultPort(u.Scheme, port) {
		host = host + ":" + port
	}
	return u.Scheme + "://" + host
}

func isDefaultPort(scheme, port string) bool {
	switch scheme {
	case "http":
		return port == "80"
	case "https":
		return port == "443"
	case "ws":
		return port == "80"
	case "wss":
		return port == "443"
	}
	return false
}
