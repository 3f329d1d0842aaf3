package reset

import "testing"

func TestRender(t *testing.T) {
	out := Outcome{
		DeletedUsers: []string{"alice", "bob"},
		RemovedLinks: []LinkRemoval{{Username: "carol", Provider: "idp-x"}},
	}

	got := Render(out, "idp-x", "app-y")
	want := "Deleted 2 users in realm idp-x:\n" +
		"alice\n" +
		"bob\n" +
		"\n" +
		"Deleted 1 federated links from app-y to idp-x:\n" +
		"carol idp-x\n"
	if got != want {
		t.Fatalf("Render()=%q, want %q", got, want)
	}
}

func TestRenderEmpty(t *testing.T) {
	got := Render(Outcome{}, "idp-x", "app-y")
	want := "Deleted 0 users in realm idp-x:\n" +
		"\n" +
		"Deleted 0 federated links from app-y to idp-x:\n"
	if got != want {
		t.Fatalf("Render()=%q, want %q", got, want)
	}
}

func TestRenderPreservesOrderAndDuplicates(t *testing.T) {
	out := Outcome{
		DeletedUsers: []string{"bob", "alice", "bob"},
	}

	got := Render(out, "idp-x", "app-y")
	want := "Deleted 3 users in realm idp-x:\n" +
		"bob\n" +
		"alice\n" +
		"bob\n" +
		"\n" +
		"Deleted 0 federated links from app-y to idp-x:\n"
	if got != want {
		t.Fatalf("Render()=%q, want %q", got, want)
	}
}
