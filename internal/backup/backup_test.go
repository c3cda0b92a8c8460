package backup

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/folio-labs/folioctl/client"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

func TestWrite_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, testLogger())

	record := client.Body{
		"id":                  "0d4e3bfe-93ef-4b42-ae2f-69b107e74b12",
		"hrid":                "it00000123",
		"permanentLocationId": "loc-1",
		"notes":               []any{map[string]any{"note": "fragile"}},
	}

	path, err := store.Write(record)
	if err != nil {
		t.Fatalf("Write error: %v", err)
	}

	wantDir := filepath.Join(dir, record.ID())
	if filepath.Dir(path) != wantDir {
		t.Errorf("backup path %s not under record directory %s", path, wantDir)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	var restored client.Body
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("decode backup: %v", err)
	}
	if restored.ID() != record.ID() || restored.HRID() != record.HRID() {
		t.Errorf("restored record differs: %v", restored)
	}
	if _, ok := restored["notes"]; !ok {
		t.Error("nested field lost in backup")
	}
}

func TestWrite_SeparateSnapshotsPerWrite(t *testing.T) {
	store := NewStore(t.TempDir(), testLogger())
	record := client.Body{"id": "abc-123"}

	p1, err := store.Write(record)
	if err != nil {
		t.Fatalf("first Write: %v", err)
	}
	p2, err := store.Write(record)
	if err != nil && p1 == p2 {
		t.Fatalf("second Write: %v", err)
	}
	// Either a distinct file, or a same-millisecond collision that must
	// error rather than overwrite.
	if err == nil && p1 == p2 {
		t.Error("two snapshots share one file")
	}
}

func TestWrite_RefusesRecordWithoutID(t *testing.T) {
	store := NewStore(t.TempDir(), testLogger())
	if _, err := store.Write(client.Body{"hrid": "x"}); err == nil {
		t.Fatal("expected error for record without id")
	}
}
