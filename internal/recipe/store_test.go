// File path: internal/recipe/store_test.go
package recipe

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStoreLoadTestdata(t *testing.T) {
	s := NewStore()
	status, err := s.Load("testdata")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Loaded != 2 {
		t.Fatalf("expected 2 recipes loaded, got %d (errors: %v)", status.Loaded, status.Errors)
	}
	if len(status.Errors) != 0 {
		t.Fatalf("unexpected load errors: %v", status.Errors)
	}

	rec, err := s.Get("update_telco_customer")
	if err != nil {
		t.Fatalf("expected update_telco_customer to load: %v", err)
	}
	if rec.EntryStep != 1 {
		t.Fatalf("expected entry step 1, got %d", rec.EntryStep)
	}

	all := s.ListAll()
	if len(all) != 2 {
		t.Fatalf("expected 2 recipes from ListAll, got %d", len(all))
	}
	if all[0].WorkOrderType >= all[1].WorkOrderType {
		t.Fatalf("expected ListAll ordered by work_order_type, got %q then %q", all[0].WorkOrderType, all[1].WorkOrderType)
	}
}

func TestStoreGetNotFound(t *testing.T) {
	s := NewStore()
	if _, err := s.Load("testdata"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := s.Get("does_not_exist")
	if err == nil {
		t.Fatal("expected NotFoundError")
	}
	if _, ok := err.(NotFoundError); !ok {
		t.Fatalf("expected NotFoundError, got %T", err)
	}
}

func TestStoreSkipsSchemaFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "schema.json", `{"anything": "goes"}`)
	writeFile(t, dir, "valid.json", validRecipeJSON("wo_a"))

	s := NewStore()
	status, err := s.Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Loaded != 1 {
		t.Fatalf("expected schema.json to be skipped, loaded=%d errors=%v", status.Loaded, status.Errors)
	}
}

func TestStoreRejectsDuplicateWorkOrderType(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", validRecipeJSON("wo_dup"))
	writeFile(t, dir, "b.json", validRecipeJSON("wo_dup"))

	s := NewStore()
	status, err := s.Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Loaded != 1 {
		t.Fatalf("expected exactly one of the duplicates to load, got %d", status.Loaded)
	}
	if len(status.Errors) != 1 {
		t.Fatalf("expected one load error for the duplicate, got %v", status.Errors)
	}
}

func TestStoreRejectsBadJumpAtLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.json", `{
		"work_order_type": "bad_jump",
		"description": "d",
		"steps": [
			{"step": 1, "operation": "QUERY", "table": "t", "where": "id = {id}", "output_fields": ["id"],
			 "on_success": {"next_step": 99}}
		]
	}`)

	s := NewStore()
	status, err := s.Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Loaded != 0 {
		t.Fatalf("expected the bad-jump recipe to be rejected, loaded=%d", status.Loaded)
	}
	if len(status.Errors) != 1 {
		t.Fatalf("expected one load error, got %v", status.Errors)
	}
}

func TestStoreOneMalformedFileDoesNotAbortLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.json", `{not valid json`)
	writeFile(t, dir, "ok.json", validRecipeJSON("wo_ok"))

	s := NewStore()
	status, err := s.Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Loaded != 1 {
		t.Fatalf("expected the valid recipe to still load, got %d", status.Loaded)
	}
	if len(status.Errors) != 1 {
		t.Fatalf("expected exactly one load error, got %v", status.Errors)
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func validRecipeJSON(workOrderType string) string {
	return `{
		"work_order_type": "` + workOrderType + `",
		"description": "d",
		"steps": [
			{"step": 1, "operation": "RETURN_SUCCESS", "message": "ok"}
		]
	}`
}
