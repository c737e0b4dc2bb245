package backup

import (
	"testing"

	"kestreldb/internal/errors"
)

func TestCoordinatorBegin(t *testing.T) {
	c := NewCoordinator()

	pin, err := c.Begin(7)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if pin != 7 {
		t.Errorf("pin = %d, want 7", pin)
	}
	if !c.Active() {
		t.Error("coordinator should be active")
	}
	if c.Pinned() != 7 {
		t.Errorf("Pinned() = %d, want 7", c.Pinned())
	}

	if _, err := c.Begin(9); !errors.Is(err, errors.ErrAlreadyActive) {
		t.Errorf("second Begin = %v, want ErrAlreadyActive", err)
	}

	c.End()
	if c.Active() {
		t.Error("coordinator should be idle after End")
	}
	if c.Pinned() != 0 {
		t.Errorf("Pinned() after End = %d, want 0", c.Pinned())
	}

	if _, err := c.Begin(12); err != nil {
		t.Fatalf("Begin after End failed: %v", err)
	}
}

func TestCoordinatorPublish(t *testing.T) {
	c := NewCoordinator()
	if _, err := c.Begin(3); err != nil {
		t.Fatal(err)
	}
	if c.Published() != nil {
		t.Error("no list should be published before Publish")
	}

	c.Publish([]string{"KestrelLog.0000000001", "Kestrel.backup"})
	if got := len(c.Published()); got != 2 {
		t.Errorf("published %d files, want 2", got)
	}

	c.ClearPublished()
	if c.Published() != nil {
		t.Error("list should be withdrawn after ClearPublished")
	}
	if !c.Active() {
		t.Error("ClearPublished must not end the backup")
	}
}

func TestCoordinatorDuplicate(t *testing.T) {
	c := NewCoordinator()

	if err := c.BeginDuplicate(); !errors.Is(err, errors.ErrInvalidState) {
		t.Errorf("BeginDuplicate without primary = %v, want ErrInvalidState", err)
	}

	if _, err := c.Begin(1); err != nil {
		t.Fatal(err)
	}
	if err := c.BeginDuplicate(); err != nil {
		t.Fatalf("BeginDuplicate failed: %v", err)
	}
	if !c.DuplicateActive() {
		t.Error("duplicate should be active")
	}
	if err := c.BeginDuplicate(); !errors.Is(err, errors.ErrDuplicateAlreadyActive) {
		t.Errorf("second BeginDuplicate = %v, want ErrDuplicateAlreadyActive", err)
	}

	c.EndDuplicate()
	if c.DuplicateActive() {
		t.Error("duplicate should be released")
	}
	if err := c.BeginDuplicate(); err != nil {
		t.Fatalf("BeginDuplicate after release failed: %v", err)
	}
}
