package session

import "testing"

func TestTouchAssignsSequentialIDs(t *testing.T) {
	b := NewBuffers()
	b.Touch("/p/a.go")
	b.Touch("/p/b.go")
	b.Touch("/p/a.go") // already open

	got := b.ListBuffers()
	if len(got) != 2 {
		t.Fatalf("got %d buffers, want 2", len(got))
	}
	if got[0].ID != 1 || got[0].Path != "/p/a.go" {
		t.Errorf("first buffer = %+v, want ID 1 /p/a.go", got[0])
	}
	if got[1].ID != 2 || got[1].Path != "/p/b.go" {
		t.Errorf("second buffer = %+v, want ID 2 /p/b.go", got[1])
	}
}

func TestTouchIgnoresEmptyPath(t *testing.T) {
	b := NewBuffers()
	b.Touch("")
	if got := b.ListBuffers(); len(got) != 0 {
		t.Errorf("got %d buffers, want 0", len(got))
	}
}

func TestDeleteBuffer(t *testing.T) {
	b := NewBuffers()
	b.Touch("/p/a.go")
	b.Touch("/p/b.go")

	if err := b.DeleteBuffer(1); err != nil {
		t.Fatalf("DeleteBuffer: %v", err)
	}
	got := b.ListBuffers()
	if len(got) != 1 || got[0].Path != "/p/b.go" {
		t.Fatalf("after delete: %+v", got)
	}

	if err := b.DeleteBuffer(99); err == nil {
		t.Error("expected error for unknown buffer id")
	}
}

func TestReopenKeepsNewID(t *testing.T) {
	b := NewBuffers()
	b.Touch("/p/a.go")
	if err := b.DeleteBuffer(1); err != nil {
		t.Fatalf("DeleteBuffer: %v", err)
	}
	b.Touch("/p/a.go")

	got := b.ListBuffers()
	if len(got) != 1 {
		t.Fatalf("got %d buffers, want 1", len(got))
	}
	if got[0].ID != 2 {
		t.Errorf("reopened buffer ID = %d, want 2 (IDs are not reused)", got[0].ID)
	}
}
