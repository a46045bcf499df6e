// internal/tenant/resolver_test.go
//
// Table tests for Resolve, including the reference scenarios:
//
//  1. root domain, any path                → Platform
//  2. bound + published, "/" with query    → rewrite, query preserved
//  3. bound + unpublished, "/"             → Unbound
//  4. unknown host                         → Unbound
//  5. bound + published, sub-path          → passthrough, no rewrite

package tenant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yanizio/pageedge/internal/binding"
)

func newTestResolver(t *testing.T, src Lookup) *Resolver {
	t.Helper()
	c := newTestCache(t, src, CacheOptions{LookupTimeout: 50 * time.Millisecond})
	return NewResolver(c, ResolverOptions{
		RootDomain:    "app.example.com",
		RenderPrefix:  "/p",
		LookupTimeout: 100 * time.Millisecond,
	})
}

func TestResolve_Scenarios(t *testing.T) {
	r := newTestResolver(t, newFakeLookup(springSale, draftPage))
	ctx := context.Background()

	cases := []struct {
		name            string
		host, path, qs  string
		want            Kind
		wantTarget      string
		wantBindingSlug string
	}{
		{"root domain", "app.example.com", "/dashboard/forms", "", Platform, "", ""},
		{"root domain mixed case", "App.Example.COM", "/", "", Platform, "", ""},
		{"published root path", "mycampaign.com", "/", "utm=x", TenantRewrite, "/p/spring-sale?utm=x", "spring-sale"},
		{"published empty path", "mycampaign.com", "", "", TenantRewrite, "/p/spring-sale", "spring-sale"},
		{"unpublished", "draft.example.org", "/", "", Unbound, "", ""},
		{"unknown", "unknown-domain.com", "/", "", Unbound, "", ""},
		{"sub-path", "mycampaign.com", "/thank-you", "", TenantPassthroughPath, "", "spring-sale"},
	}
	for _, tc := range cases {
		d := r.Resolve(ctx, tc.host, tc.path, tc.qs)
		if d.Kind != tc.want {
			t.Errorf("%s: kind = %v, want %v", tc.name, d.Kind, tc.want)
			continue
		}
		if d.Target != tc.wantTarget {
			t.Errorf("%s: target = %q, want %q", tc.name, d.Target, tc.wantTarget)
		}
		if tc.wantBindingSlug != "" && (d.Binding == nil || d.Binding.Slug != tc.wantBindingSlug) {
			t.Errorf("%s: binding = %#v", tc.name, d.Binding)
		}
		if tc.want == Unbound && d.Binding != nil {
			t.Errorf("%s: unbound decision leaked binding %#v", tc.name, d.Binding)
		}
	}
}

func TestResolve_RootNeverLooksUp(t *testing.T) {
	src := newFakeLookup()
	r := newTestResolver(t, src)
	for _, p := range []string{"/", "/dashboard", "/anything/else"} {
		if d := r.Resolve(context.Background(), "app.example.com", p, ""); d.Kind != Platform {
			t.Fatalf("path %s: kind = %v", p, d.Kind)
		}
	}
	if src.calls.Load() != 0 {
		t.Fatalf("root domain triggered %d lookups", src.calls.Load())
	}
}

func TestResolve_Idempotent(t *testing.T) {
	r := NewResolver(Uncached(newFakeLookup(springSale)), ResolverOptions{
		RootDomain: "app.example.com", RenderPrefix: "/p",
	})
	a := r.Resolve(context.Background(), "mycampaign.com", "/", "a=1")
	b := r.Resolve(context.Background(), "mycampaign.com", "/", "a=1")
	if a.Kind != b.Kind || a.Target != b.Target || a.Host != b.Host {
		t.Fatalf("decisions differ: %#v vs %#v", a, b)
	}
}

func TestResolve_FailOpenOnError(t *testing.T) {
	src := newFakeLookup(springSale)
	src.err = errors.New("storage unavailable")
	r := newTestResolver(t, src)

	d := r.Resolve(context.Background(), "mycampaign.com", "/", "")
	if d.Kind != Platform || !d.FailedOpen() {
		t.Fatalf("decision = %#v, want fail-open platform", d)
	}
}

func TestResolve_FailOpenOnTimeout(t *testing.T) {
	src := newFakeLookup(springSale)
	src.block = true
	r := newTestResolver(t, src)

	start := time.Now()
	d := r.Resolve(context.Background(), "mycampaign.com", "/", "")
	if !d.FailedOpen() {
		t.Fatalf("decision = %#v, want fail-open platform", d)
	}
	if !errors.Is(d.Err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", d.Err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("resolution was not bounded")
	}
}

func TestResolve_NilRecordIsUnbound(t *testing.T) {
	r := NewResolver(Uncached(nilLookup{}), ResolverOptions{RootDomain: "app.example.com"})
	if d := r.Resolve(context.Background(), "x.com", "/", ""); d.Kind != Unbound {
		t.Fatalf("kind = %v, want Unbound", d.Kind)
	}
}

type nilLookup struct{}

func (nilLookup) ByHost(context.Context, string) (*binding.Record, error) { return nil, nil }

func TestKindString(t *testing.T) {
	want := map[Kind]string{
		Platform:              "platform",
		TenantRewrite:         "tenant_rewrite",
		TenantPassthroughPath: "tenant_passthrough",
		Unbound:               "unbound",
		Kind(42):              "unknown",
	}
	for k, s := range want {
		if k.String() != s {
			t.Errorf("Kind(%d).String() = %q, want %q", int(k), k.String(), s)
		}
	}
}
