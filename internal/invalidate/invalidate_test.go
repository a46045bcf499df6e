package invalidate

import (
	"context"
	"testing"
)

type recorder struct {
	hosts  []string
	pages  []uint64
	purges int
}

func (r *recorder) Invalidate(h string)      { r.hosts = append(r.hosts, h) }
func (r *recorder) InvalidatePage(id uint64) { r.pages = append(r.pages, id) }
func (r *recorder) Purge()                   { r.purges++ }

func TestApply(t *testing.T) {
	r := &recorder{}
	for _, p := range []string{
		`{"host":"MyCampaign.com."}`,
		`{"page_id":7}`,
		`{"all":true}`,
	} {
		if _, err := Apply(r, p); err != nil {
			t.Fatalf("Apply(%s): %v", p, err)
		}
	}
	if len(r.hosts) != 1 || r.hosts[0] != "mycampaign.com" {
		t.Fatalf("hosts = %v", r.hosts)
	}
	if len(r.pages) != 1 || r.pages[0] != 7 {
		t.Fatalf("pages = %v", r.pages)
	}
	if r.purges != 1 {
		t.Fatalf("purges = %d", r.purges)
	}
}

func TestApply_Rejects(t *testing.T) {
	r := &recorder{}
	for _, p := range []string{
		`not json`,
		`{}`,
		`{"host":"a.com","page_id":1}`,
		`{"host":"   "}`,
	} {
		if _, err := Apply(r, p); err == nil {
			t.Errorf("Apply(%s) accepted", p)
		}
	}
	if len(r.hosts)+len(r.pages)+r.purges != 0 {
		t.Fatalf("rejected payload reached the target")
	}
}

func TestPublish_ValidatesBeforeSending(t *testing.T) {
	// nil client: Validate must fail before the client is touched.
	p := &Publisher{channel: DefaultChannel}
	if _, err := p.Publish(context.Background(), Event{}); err == nil {
		t.Fatalf("empty event published")
	}
}

func TestTargetsFanOut(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	if _, err := Apply(Targets{a, b}, `{"page_id":7}`); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	for _, r := range []*recorder{a, b} {
		if len(r.pages) != 1 || r.pages[0] != 7 {
			t.Fatalf("pages = %v, want [7]", r.pages)
		}
	}
}
