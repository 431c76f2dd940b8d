package arena

import "testing"

func TestBindAndIdentity(t *testing.T) {
	r := NewConnRegistry()
	r.Bind("ch1", "p1")

	if p, ok := r.IdentityOf("ch1"); !ok || p != "p1" {
		t.Fatalf("IdentityOf: %q %v", p, ok)
	}
	if ch, ok := r.ChannelOf("p1"); !ok || ch != "ch1" {
		t.Fatalf("ChannelOf: %q %v", ch, ok)
	}
}

func TestUnbindIdempotent(t *testing.T) {
	r := NewConnRegistry()
	r.Bind("ch1", "p1")

	if p, ok := r.Unbind("ch1"); !ok || p != "p1" {
		t.Fatalf("Unbind: %q %v", p, ok)
	}
	if _, ok := r.Unbind("ch1"); ok {
		t.Fatalf("second unbind must be a no-op")
	}
	if _, ok := r.IdentityOf("ch1"); ok {
		t.Fatalf("identity must be gone after unbind")
	}
}

func TestRebindReplacesChannel(t *testing.T) {
	r := NewConnRegistry()
	r.Bind("ch1", "p1")
	r.Bind("ch1", "p2")

	if p, _ := r.IdentityOf("ch1"); p != "p2" {
		t.Fatalf("expected p2, got %q", p)
	}
	if _, ok := r.ChannelOf("p1"); ok {
		t.Fatalf("p1 must be unbound after rebind")
	}
	if r.Count() != 1 {
		t.Fatalf("expected 1 binding, got %d", r.Count())
	}
}
