package attach

import (
	"errors"
	"io"
	"strings"
	"testing"

	"pettycash/internal/core"
)

func TestStore_SaveAndOpen(t *testing.T) {
	st, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	date := core.NewTxDate(2025, 3, 5)
	ref, err := st.Save(strings.NewReader("receipt bytes"), "IMG_1234.JPG", date, "Courier to HQ!")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if ref != "20250305_courier_to_hq.jpg" {
		t.Errorf("Save() ref = %q, want 20250305_courier_to_hq.jpg", ref)
	}

	r, err := st.Open(ref)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(data) != "receipt bytes" {
		t.Errorf("content = %q, want original bytes", data)
	}
}

func TestStore_SaveCollisionGetsSuffix(t *testing.T) {
	st, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	date := core.NewTxDate(2025, 3, 5)
	first, err := st.Save(strings.NewReader("one"), "a.png", date, "stamps")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	second, err := st.Save(strings.NewReader("two"), "b.png", date, "stamps")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if first == second {
		t.Errorf("second ref %q collides with first", second)
	}
	if second != "20250305_stamps_1.png" {
		t.Errorf("second ref = %q, want 20250305_stamps_1.png", second)
	}
}

func TestStore_SaveRejections(t *testing.T) {
	st, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	date := core.NewTxDate(2025, 3, 5)

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := st.Save(strings.NewReader("x"), "malware.exe", date, "stamps")
		if !errors.Is(err, ErrUnsupported) {
			t.Errorf("Save() error = %v, want %v", err, ErrUnsupported)
		}
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := st.Save(strings.NewReader(""), "a.jpg", date, "stamps")
		if !errors.Is(err, ErrEmptyFile) {
			t.Errorf("Save() error = %v, want %v", err, ErrEmptyFile)
		}
		if _, err := st.Open("20250305_stamps.jpg"); !errors.Is(err, ErrNotFound) {
			t.Errorf("rejected save left a file behind: %v", err)
		}
	})
}

func TestStore_UndatedEntry(t *testing.T) {
	st, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	ref, err := st.Save(strings.NewReader("x"), "a.pdf", core.TxDate{}, "")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if ref != "undated_attachment.pdf" {
		t.Errorf("ref = %q, want undated_attachment.pdf", ref)
	}
}

func TestStore_ResolveRejectsTraversal(t *testing.T) {
	st, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	for _, ref := range []string{"", "../secret", "a/b.jpg", ".hidden"} {
		if _, err := st.Open(ref); !errors.Is(err, ErrBadRef) {
			t.Errorf("Open(%q) error = %v, want %v", ref, err, ErrBadRef)
		}
	}
}

func TestStore_RemoveMissingIsNoError(t *testing.T) {
	st, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	if err := st.Remove("20250305_gone.jpg"); err != nil {
		t.Errorf("Remove() error = %v, want nil for missing file", err)
	}
}
