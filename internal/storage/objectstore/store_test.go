package objectstore

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStorePutGetList(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := PutJSON(ctx, store, "data", "predictions/2023/07/01/a.json", map[string]string{"k": "v"}); err != nil {
		t.Fatalf("PutJSON: %v", err)
	}
	if err := PutJSON(ctx, store, "data", "predictions/2023/07/01/b.json", map[string]string{"k": "w"}); err != nil {
		t.Fatalf("PutJSON: %v", err)
	}
	if err := PutJSON(ctx, store, "data", "predictions/2023/07/02/c.json", map[string]string{"k": "x"}); err != nil {
		t.Fatalf("PutJSON: %v", err)
	}

	keys, err := store.List(ctx, "data", "predictions/2023/07/01/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("List returned %d keys, want 2", len(keys))
	}

	var out map[string]string
	if err := GetJSON(ctx, store, "data", "predictions/2023/07/01/a.json", &out); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if out["k"] != "v" {
		t.Fatalf("round trip value=%q, want v", out["k"])
	}
}

func TestExists(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	ok, err := Exists(ctx, store, "data", "models/2021-08/model.json")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if ok {
		t.Fatal("absent object reported present")
	}

	_, _, err = store.Get(ctx, "data", "models/2021-08/model.json")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get error=%v, want ErrNotFound", err)
	}

	if err := PutJSON(ctx, store, "data", "models/2021-08/model.json", map[string]any{}); err != nil {
		t.Fatalf("PutJSON: %v", err)
	}
	ok, err = Exists(ctx, store, "data", "models/2021-08/model.json")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !ok {
		t.Fatal("present object reported absent")
	}
}
