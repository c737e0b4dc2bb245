package fs

import (
	"os"
	"testing"
)

func withMemFs(t *testing.T) {
	t.Helper()
	SetFS(NewMemMapFs())
	t.Cleanup(ResetFS)
}

func TestCreateExclusive(t *testing.T) {
	withMemFs(t)

	f, err := CreateExclusive("Kestrel.backup.tmp")
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := f.WriteString("table:t\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, err := CreateExclusive("Kestrel.backup.tmp"); err == nil {
		t.Fatal("second exclusive create should fail")
	}
}

func TestSyncAndRenamePublishesAtomically(t *testing.T) {
	withMemFs(t)

	f, err := CreateExclusive("Kestrel.backup.tmp")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.WriteString("table:t\nsource=file:t.kv\n"); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := SyncAndRename(f, "Kestrel.backup.tmp", "Kestrel.backup"); err != nil {
		t.Fatalf("SyncAndRename: %v", err)
	}

	if ok, _ := Exists("Kestrel.backup.tmp"); ok {
		t.Error("temp file should be gone after publication")
	}
	data, err := ReadFile("Kestrel.backup")
	if err != nil {
		t.Fatalf("read published file: %v", err)
	}
	if string(data) != "table:t\nsource=file:t.kv\n" {
		t.Errorf("published content = %q", data)
	}
}

func TestRemoveIfExists(t *testing.T) {
	withMemFs(t)

	if err := RemoveIfExists("Kestrel.ibackup"); err != nil {
		t.Errorf("missing file should not error: %v", err)
	}

	if err := WriteFile("Kestrel.ibackup", []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := RemoveIfExists("Kestrel.ibackup"); err != nil {
		t.Errorf("remove existing: %v", err)
	}
	if ok, _ := Exists("Kestrel.ibackup"); ok {
		t.Error("file should be removed")
	}
}

func TestExists(t *testing.T) {
	withMemFs(t)

	ok, err := Exists("Kestrel.basecfg")
	if err != nil || ok {
		t.Errorf("Exists(missing) = %v, %v", ok, err)
	}

	if err := WriteFile("Kestrel.basecfg", []byte("cfg"), os.FileMode(0o644)); err != nil {
		t.Fatalf("write: %v", err)
	}
	ok, err = Exists("Kestrel.basecfg")
	if err != nil || !ok {
		t.Errorf("Exists(present) = %v, %v", ok, err)
	}
}
