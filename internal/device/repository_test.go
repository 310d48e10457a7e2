package device

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestRepo creates an in-memory SQLite repository.
func setupTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo, err := NewSQLiteRepository(db)
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	return repo
}

func testDevice(name string) *Device {
	now := time.Now().UTC().Truncate(time.Second)
	return &Device{
		Name:      name,
		Protocol:  ProtocolZigbee2MQTT,
		Model:     ModelSonoffSmartPlug,
		Address:   "0x00124b0022a1b2c3",
		FirstSeen: now,
		LastSeen:  now,
	}
}

func TestUpsertAndList(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	if err := repo.Upsert(ctx, testDevice("bedroom_plug")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := repo.Upsert(ctx, testDevice("attic_plug")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	devices, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("List() returned %d devices, want 2", len(devices))
	}
	// Ordered by name.
	if devices[0].Name != "attic_plug" || devices[1].Name != "bedroom_plug" {
		t.Errorf("List() order = [%s, %s], want name order", devices[0].Name, devices[1].Name)
	}
	if devices[0].Protocol != ProtocolZigbee2MQTT {
		t.Errorf("Protocol round-trip = %q", devices[0].Protocol)
	}
	if devices[0].Model != ModelSonoffSmartPlug {
		t.Errorf("Model round-trip = %q", devices[0].Model)
	}
}

func TestUpsertReplaces(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	d := testDevice("plug")
	d.Model = ModelUnknown
	if err := repo.Upsert(ctx, d); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	d.Model = ModelSonoffMini
	d.LastSeen = d.LastSeen.Add(time.Minute)
	if err := repo.Upsert(ctx, d); err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}

	devices, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(devices) != 1 {
		t.Fatalf("List() returned %d devices, want 1 after replace", len(devices))
	}
	if devices[0].Model != ModelSonoffMini {
		t.Errorf("Model = %q, want updated %q", devices[0].Model, ModelSonoffMini)
	}
}

func TestDelete(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	if err := repo.Upsert(ctx, testDevice("plug")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := repo.Delete(ctx, "plug"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.Delete(ctx, "plug"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Delete() of missing device error = %v, want ErrDeviceNotFound", err)
	}
}

func TestRegistryWithSQLiteRepository(t *testing.T) {
	repo := setupTestRepo(t)
	r := NewRegistry(repo)

	if _, err := r.Discover("garden_light", ProtocolTasmota, ModelShellyPlugS, ""); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	fresh := NewRegistry(repo)
	if err := fresh.Restore(context.Background()); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	d, err := fresh.Get("garden_light")
	if err != nil {
		t.Fatalf("Get() after restore error = %v", err)
	}
	if d.Model != ModelShellyPlugS {
		t.Errorf("restored Model = %q, want %q", d.Model, ModelShellyPlugS)
	}
}
