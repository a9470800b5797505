// Package cookies implements per-zone cookie jars: Set-Cookie response
// parsing, request-cookie filtering, and an optional persistence hook.
package cookies

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// SameSite mirrors the Set-Cookie SameSite attribute.
type SameSite int

const (
	SameSiteUnspecified SameSite = iota
	SameSiteStrict
	SameSiteLax
	SameSiteNone
)

// Cookie is one stored cookie, as parsed from a Set-Cookie header.
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Expires  *time.Time
	SameSite SameSite
	Secure   bool
	HTTPOnly bool
}

// ParseSetCookie parses a single Set-Cookie header value, resolving a
// missing Domain/Path against requestURL the way a real cookie jar resolves
// them against the response's request URL.
func ParseSetCookie(header string, requestURL *url.URL) (Cookie, bool) {
	parts := strings.Split(header, ";")
	if len(parts) == 0 {
		return Cookie{}, false
	}
	nameValue := strings.SplitN(strings.TrimSpace(parts[0]), "=", 2)
	if len(nameValue) != 2 || strings.TrimSpace(nameValue[0]) == "" {
		return Cookie{}, false
	}
	c := Cookie{
		Name:  strings.TrimSpace(nameValue[0]),
		Value: strings.TrimSpace(nameValue[1]),
	}

	for _, attr := range parts[1:] {
		attr = strings.TrimSpace(attr)
		if attr == "" {
			continue
		}
		kv := strings.SplitN(attr, "=", 2)
		key := strings.ToLower(strings.TrimSpace(kv[0]))
		var val string
		if len(kv) == 2 {
			val = strings.TrimSpace(kv[1])
		}
		switch key {
		case "domain":
			c.Domain = strings.TrimPrefix(val, ".")
		case "path":
			c.Path = val
		case "expires":
			if t, err := time.Parse(time.RFC1123, val); err == nil {
				c.Expires = &t
			}
		case "max-age":
			if secs, err := strconv.Atoi(val); err == nil {
				t := time.Now().Add(time.Duration(secs) * time.Second)
				c.Expires = &t
			}
		case "samesite":
			switch strings.ToLower(val) {
			case "strict":
				c.SameSite = SameSiteStrict
			case "lax":
				c.SameSite = SameSiteLax
			case "none":
				c.SameSite = SameSiteNone
			}
		case "secure":
			c.Secure = true
		case "httponly":
			c.HTTPOnly = true
		}
	}

	if c.Domain == "" && requestURL != nil {
		c.Domain = requestURL.Hostname()
	}
	if c.Path == "" {
		c.Path = defaultPath(requestURL)
	}
	return c, true
}

// defaultPath mirrors the directory-of-the-request-path rule: everything
// up to but not including the last '/', or "/" if that would be empty.
func defaultPath(u *url.URL) string {
	if u == nil {
		return "/"
	}
	p := u.Path
	idx := strings.LastIndex(p, "/")
	if idx <= 0 {
		return "/"
	}
	return p[:idx]
}

func (c Cookie) isExpired() bool {
	return c.Expires != nil && c.Expires.Before(time.Now())
}

func (c Cookie) matchesDomain(host string) bool {
	host = strings.ToLower(host)
	domain := strings.ToLower(c.Domain)
	if host == domain {
		return true
	}
	return strings.HasSuffix(host, "."+domain)
}

func (c Cookie) matchesPath(path string) bool {
	if path == "" {
		path = "/"
	}
	if c.Path == "/" || c.Path == "" {
		return true
	}
	if !strings.HasPrefix(path, c.Path) {
		return false
	}
	return len(path) == len(c.Path) || path[len(c.Path)] == '/'
}

// Header renders the cookie as a "name=value" request-header pair.
func (c Cookie) Header() string {
	return c.Name + "=" + c.Value
}
