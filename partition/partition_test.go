package partition

import (
	"net/url"
	"testing"
)

func TestFromURLStringEmptyIsNone(t *testing.T) {
	if k := FromURLString(""); !k.IsNone() {
		t.Fatalf("expected None for empty string, got %v", k)
	}
}

func TestFromURLStringTopLevel(t *testing.T) {
	k := FromURLString("https://example.com/path?q=1")
	origin, ok := k.Origin()
	if !ok || origin != "https://example.com" {
		t.Fatalf("got origin=%q ok=%v", origin, ok)
	}
}

func TestComputeElidesDefaultPort(t *testing.T) {
	u, _ := url.Parse("https://example.com:443/")
	k := Compute(u, PolicyTopLevelOrigin)
	origin, _ := k.Origin()
	if origin != "https://example.com" {
		t.Fatalf("expected default port elided, got %q", origin)
	}
}

func TestComputeKeepsNonDefaultPort(t *testing.T) {
	u, _ := url.Parse("https://example.com:8443/")
	k := Compute(u, PolicyTopLevelOrigin)
	origin, _ := k.Origin()
	if origin != "https://example.com:8443" {
		t.Fatalf("expected port kept, got %q", origin)
	}
}

func TestComputeNonePolicy(t *testing.T) {
	u, _ := url.Parse("https://example.com/")
	k := Compute(u, PolicyNone)
	if !k.IsNone() {
		t.Fatalf("expected None under PolicyNone, got %v", k)
	}
}

func TestKeyEqualityForMapUse(t *testing.T) {
	a := TopLevel("https://example.com")
	b := TopLevel("https://example.com")
	m := map[Key]int{a: 1}
	if m[b] != 1 {
		t.Fatalf("expected equal Keys to collide as map keys")
	}
	if None != (Key{}) {
		t.Fatalf("None must equal the zero value")
	}
}

func TestIPv6HostWithPort(t *testing.T) {
	u, _ := url.Parse("http://[::1]:8080/")
	k := Compute(u, PolicyTopLevelOrigin)
	origin, _ := k.Origin()
	if origin != "http://[::1]:8080" {
		t.Fatalf("got %q", origin)
	}
}
