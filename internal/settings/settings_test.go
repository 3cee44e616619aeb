package settings

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/tablehouse/eventdesk/internal/db/dbtest"
)

func TestIntReadsNumbersAndNumericStrings(t *testing.T) {
	StoreDBConfig(time.Now(), map[string]json.RawMessage{
		"A": json.RawMessage(`12`),
		"B": json.RawMessage(`"34"`),
		"C": json.RawMessage(`0`),
		"D": json.RawMessage(`"many"`),
		"E": json.RawMessage(`9.0`),
		"F": json.RawMessage(`{"value": 15}`),
		"G": json.RawMessage(`2.5`),
	})
	t.Cleanup(func() { StoreDBConfig(time.Time{}, nil) })

	cases := []struct {
		key  string
		want int
	}{
		{"A", 12},
		{"B", 34},
		{"C", 7},
		{"D", 7},
		{"MISSING", 7},
		{"E", 9},
		{"F", 15},
		{"G", 7},
	}
	for _, tc := range cases {
		if got := Int(tc.key, 7); got != tc.want {
			t.Fatalf("Int(%s) = %d, want %d", tc.key, got, tc.want)
		}
	}
}

func TestStringFallsBackWhenBlank(t *testing.T) {
	StoreDBConfig(time.Now(), map[string]json.RawMessage{
		SiteNameKey: json.RawMessage(`"  "`),
	})
	t.Cleanup(func() { StoreDBConfig(time.Time{}, nil) })

	if got := String(SiteNameKey, DefaultSiteName); got != DefaultSiteName {
		t.Fatalf("String = %q", got)
	}
}

func TestSaveUpsertsAndRefreshesSnapshot(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()
	t.Cleanup(func() { StoreDBConfig(time.Time{}, nil) })

	if errSave := Save(ctx, conn, ValentinesSlotCapacityKey, json.RawMessage(`6`)); errSave != nil {
		t.Fatalf("save: %v", errSave)
	}
	if got := Int(ValentinesSlotCapacityKey, DefaultValentinesSlotCapacity); got != 6 {
		t.Fatalf("capacity after first save = %d", got)
	}
	if errSave := Save(ctx, conn, ValentinesSlotCapacityKey, json.RawMessage(`8`)); errSave != nil {
		t.Fatalf("second save: %v", errSave)
	}
	if got := Int(ValentinesSlotCapacityKey, DefaultValentinesSlotCapacity); got != 8 {
		t.Fatalf("capacity after second save = %d", got)
	}
	if errSave := Save(ctx, conn, "BROKEN", json.RawMessage(`{`)); errSave == nil {
		t.Fatalf("expected invalid json to be rejected")
	}
}
