package domain

import (
	"errors"
	"testing"
)

func TestDraftRoundTripOmitsAbsentFields(t *testing.T) {
	title := "Fix bug"
	status := StatusDone
	raw, err := EncodeDraft(Draft{Title: &title, Status: &status, BoardID: IntPtr(1)})
	if err != nil {
		t.Fatalf("EncodeDraft() error = %v", err)
	}
	if string(raw) != `{"title":"Fix bug","status":"done","boardId":1}` {
		t.Fatalf("unexpected encoding %s", raw)
	}
	decoded, err := DecodeDraft(raw)
	if err != nil {
		t.Fatalf("DecodeDraft() error = %v", err)
	}
	if decoded.Priority != nil || decoded.Description != nil || decoded.AssigneeID != nil {
		t.Fatalf("expected absent fields to stay absent, got %#v", decoded)
	}
	if *decoded.Title != title || *decoded.Status != StatusDone || *decoded.BoardID != 1 {
		t.Fatalf("unexpected decoded draft %#v", decoded)
	}
}

func TestDecodeDraftDropsInvalidFields(t *testing.T) {
	raw := []byte(`{"title":42,"description":"keep me","priority":"urgent","status":"done","boardId":"one","assigneeId":-3,"id":9}`)
	d, err := DecodeDraft(raw)
	if err != nil {
		t.Fatalf("DecodeDraft() error = %v", err)
	}
	if d.Title != nil || d.Priority != nil || d.BoardID != nil || d.AssigneeID != nil {
		t.Fatalf("expected invalid fields to be dropped, got %#v", d)
	}
	if d.Description == nil || *d.Description != "keep me" {
		t.Fatalf("expected description to survive, got %#v", d.Description)
	}
	if d.Status == nil || *d.Status != StatusDone {
		t.Fatalf("expected status to survive, got %#v", d.Status)
	}
}

func TestDecodeDraftRejectsNonObjects(t *testing.T) {
	for _, raw := range []string{"", "not json", "[1,2]", "null", `"title"`} {
		if _, err := DecodeDraft([]byte(raw)); !errors.Is(err, ErrMalformedDraft) {
			t.Fatalf("DecodeDraft(%q) expected ErrMalformedDraft, got %v", raw, err)
		}
	}
}

func TestDraftIsEmpty(t *testing.T) {
	if !(Draft{}).IsEmpty() {
		t.Fatal("expected zero draft to be empty")
	}
	if (Draft{BoardID: IntPtr(3)}).IsEmpty() {
		t.Fatal("expected draft with board to be non-empty")
	}
}
