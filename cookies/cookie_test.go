package cookies

import (
	"net/url"
	"testing"

	"tabengine/ids"
)

func mustURL(t *testing.T, s string) *url.URL {
	t.Helper()
	u, err := url.Parse(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return u
}

func TestParseSetCookieBasic(t *testing.T) {
	req := mustURL(t, "https://example.com/app/page")
	c, ok := ParseSetCookie("session=abc123; Path=/app; Secure; HttpOnly; SameSite=Lax", req)
	if !ok {
		t.Fatalf("expected parse success")
	}
	if c.Name != "session" || c.Value != "abc123" {
		t.Fatalf("unexpected name/value: %+v", c)
	}
	if !c.Secure || !c.HTTPOnly || c.SameSite != SameSiteLax {
		t.Fatalf("unexpected attributes: %+v", c)
	}
	if c.Domain != "example.com" {
		t.Fatalf("expected domain defaulted to request host, got %q", c.Domain)
	}
}

func TestParseSetCookieDomainStripsLeadingDot(t *testing.T) {
	req := mustURL(t, "https://sub.example.com/")
	c, ok := ParseSetCookie("a=b; Domain=.example.com", req)
	if !ok || c.Domain != "example.com" {
		t.Fatalf("expected leading dot stripped, got %+v", c)
	}
}

func TestDefaultJarStoreAndFilter(t *testing.T) {
	jar := NewDefaultJar()
	req := mustURL(t, "https://example.com/app/page")
	jar.StoreResponseCookies(req, []string{"a=1; Path=/app", "b=2; Path=/; Secure"})

	httpsReq := mustURL(t, "https://example.com/app/sub")
	got := jar.GetRequestCookies(httpsReq)
	if len(got) != 2 {
		t.Fatalf("expected 2 cookies for https request, got %d", len(got))
	}

	httpReq := mustURL(t, "http://example.com/app/sub")
	got = jar.GetRequestCookies(httpReq)
	if len(got) != 1 || got[0].Name != "a" {
		t.Fatalf("expected secure cookie excluded over http, got %+v", got)
	}

	outsidePath := mustURL(t, "https://example.com/other")
	got = jar.GetRequestCookies(outsidePath)
	if len(got) != 1 || got[0].Name != "b" {
		t.Fatalf("expected path-scoped cookie excluded, got %+v", got)
	}
}

func TestDefaultJarReplacesSameName(t *testing.T) {
	jar := NewDefaultJar()
	req := mustURL(t, "https://example.com/")
	jar.StoreResponseCookies(req, []string{"a=1"})
	jar.StoreResponseCookies(req, []string{"a=2"})
	all := jar.GetAllCookies()
	if len(all) != 1 || all[0].Value != "2" {
		t.Fatalf("expected single replaced cookie, got %+v", all)
	}
}

func TestDomainSuffixMatch(t *testing.T) {
	jar := NewDefaultJar()
	req := mustURL(t, "https://example.com/")
	jar.StoreResponseCookies(req, []string{"a=1; Domain=example.com"})
	sub := mustURL(t, "https://sub.example.com/")
	got := jar.GetRequestCookies(sub)
	if len(got) != 1 {
		t.Fatalf("expected domain cookie to match subdomain, got %+v", got)
	}
}

func TestPersistentJarPersistsOnMutation(t *testing.T) {
	store := NewInMemoryStore()
	zone := ids.NewZoneId()
	jar, err := NewPersistentJar(zone, store)
	if err != nil {
		t.Fatalf("new persistent jar: %v", err)
	}
	req := mustURL(t, "https://example.com/")
	jar.StoreResponseCookies(req, []string{"a=1"})

	reloaded, err := NewPersistentJar(zone, store)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(reloaded.GetAllCookies()) != 1 {
		t.Fatalf("expected persisted cookie to survive reload")
	}
}

func TestPersistentJarClearPersists(t *testing.T) {
	store := NewInMemoryStore()
	zone := ids.NewZoneId()
	jar, _ := NewPersistentJar(zone, store)
	req := mustURL(t, "https://example.com/")
	jar.StoreResponseCookies(req, []string{"a=1"})
	jar.Clear()

	reloaded, _ := NewPersistentJar(zone, store)
	if len(reloaded.GetAllCookies()) != 0 {
		t.Fatalf("expected clear to persist")
	}
}
