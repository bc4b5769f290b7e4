package snapshot

import (
	"fmt"
	"testing"

	"github.com/mailsweep/mailsweep-service/internal/classify"
	"github.com/mailsweep/mailsweep-service/internal/gmail"
)

func categorized(id string) CategorizedEmail {
	return CategorizedEmail{
		Email:    gmail.Email{ID: id, Sender: id + "@example.com", Subject: "s"},
		Category: classify.CategoryOther,
	}
}

func TestMerge_RemovesDeleted(t *testing.T) {
	list := make([]CategorizedEmail, 6)
	for i := range list {
		list[i] = categorized(fmt.Sprintf("m%d", i))
	}

	got := Merge(list, []string{"m1", "m4"})

	if len(got) != 4 {
		t.Fatalf("remaining = %d, want 4", len(got))
	}
	wantOrder := []string{"m0", "m2", "m3", "m5"}
	for i, id := range wantOrder {
		if got[i].ID != id {
			t.Errorf("remaining[%d] = %q, want %q", i, got[i].ID, id)
		}
	}
}

func TestMerge_NoDeletions(t *testing.T) {
	list := []CategorizedEmail{categorized("a"), categorized("b")}

	got := Merge(list, nil)

	if len(got) != 2 {
		t.Fatalf("remaining = %d, want 2", len(got))
	}
	got[0].Subject = "mutated"
	if list[0].Subject == "mutated" {
		t.Error("Merge returned the input's backing array")
	}
}

func TestMerge_UnknownIDsIgnored(t *testing.T) {
	list := []CategorizedEmail{categorized("a")}

	got := Merge(list, []string{"never-seen", "a"})

	if len(got) != 0 {
		t.Fatalf("remaining = %d, want 0", len(got))
	}
}

func TestMerge_EmptyList(t *testing.T) {
	got := Merge(nil, []string{"a"})
	if len(got) != 0 {
		t.Fatalf("remaining = %d, want 0", len(got))
	}
}
