package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFixture(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.txt")
	testContent := []byte("test fixture content")

	if err := os.WriteFile(testFile, testContent, 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	result := LoadFixture(t, testFile)
	if string(result) != string(testContent) {
		t.Errorf("expected %q, got %q", testContent, result)
	}
}

func TestLoadFixtureJSON(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.json")

	if err := os.WriteFile(testFile, []byte(`{"name":"test","value":42}`), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	var result map[string]any
	LoadFixtureJSON(t, testFile, &result)

	if result["name"] != "test" {
		t.Errorf("expected name to be 'test', got %v", result["name"])
	}
	if result["value"] != float64(42) {
		t.Errorf("expected value to be 42, got %v", result["value"])
	}
}

func TestLoadRecords(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "records.json")
	body := `[{"id":1,"site":"one.example.com"},{"id":2,"site":"two.example.com"}]`

	if err := os.WriteFile(testFile, []byte(body), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	records := LoadRecords(t, testFile)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[1]["site"] != "two.example.com" {
		t.Errorf("unexpected second record: %v", records[1])
	}
}

func TestFixturePath(t *testing.T) {
	expected := filepath.Join("testdata", "sites.json")
	if got := FixturePath("sites.json"); got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
}
