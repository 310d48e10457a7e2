package device

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// MockRepository is a test implementation of Repository.
type MockRepository struct {
	mu      sync.Mutex
	upserts []Device
	listed  []Device
	failing bool
}

func (m *MockRepository) Upsert(_ context.Context, d *Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errors.New("mock: upsert failed")
	}
	m.upserts = append(m.upserts, *d)
	return nil
}

func (m *MockRepository) List(_ context.Context) ([]Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return nil, errors.New("mock: list failed")
	}
	return m.listed, nil
}

func (m *MockRepository) Delete(_ context.Context, _ string) error {
	return nil
}

func (m *MockRepository) upsertCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.upserts)
}

func TestDiscoverCreatesEntry(t *testing.T) {
	r := NewRegistry(nil)

	created, err := r.Discover("living_room_plug", ProtocolZigbee2MQTT, ModelSonoffSmartPlug, "0x00124b0022xyz")
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if !created {
		t.Error("Discover() created = false, want true for first observation")
	}

	d, err := r.Get("living_room_plug")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if d.Protocol != ProtocolZigbee2MQTT {
		t.Errorf("Protocol = %q, want %q", d.Protocol, ProtocolZigbee2MQTT)
	}
	if d.Model != ModelSonoffSmartPlug {
		t.Errorf("Model = %q, want %q", d.Model, ModelSonoffSmartPlug)
	}
	if d.FirstSeen.IsZero() || d.LastSeen.IsZero() {
		t.Error("Discover() did not stamp observation times")
	}
}

func TestDiscoverFirstWriterWins(t *testing.T) {
	r := NewRegistry(nil)

	if _, err := r.Discover("plug", ProtocolTasmota, ModelShellyPlugS, ""); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	created, err := r.Discover("plug", ProtocolZigbee2MQTT, ModelSonoffMini, "")
	if err != nil {
		t.Fatalf("second Discover() error = %v", err)
	}
	if created {
		t.Error("second Discover() created = true, want false")
	}

	d, _ := r.Get("plug")
	if d.Protocol != ProtocolTasmota {
		t.Errorf("Protocol = %q, want first writer %q", d.Protocol, ProtocolTasmota)
	}
	if d.Model != ModelShellyPlugS {
		t.Errorf("Model = %q, want first writer %q", d.Model, ModelShellyPlugS)
	}
}

func TestDiscoverFillsUnknownModel(t *testing.T) {
	r := NewRegistry(nil)

	if _, err := r.Discover("sensor", ProtocolZigbee2MQTT, ModelUnknown, ""); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if _, err := r.Discover("sensor", ProtocolZigbee2MQTT, ModelSonoffAirSensor, ""); err != nil {
		t.Fatalf("second Discover() error = %v", err)
	}

	d, _ := r.Get("sensor")
	if d.Model != ModelSonoffAirSensor {
		t.Errorf("Model = %q, want %q filled on second observation", d.Model, ModelSonoffAirSensor)
	}
}

func TestDiscoverValidation(t *testing.T) {
	tests := []struct {
		name     string
		devName  string
		protocol Protocol
		wantErr  error
	}{
		{"empty name", "", ProtocolTasmota, ErrInvalidName},
		{"unknown protocol", "dev", Protocol("zwave"), ErrInvalidProtocol},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(nil)
			_, err := r.Discover(tt.devName, tt.protocol, ModelUnknown, "")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Discover() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestResolveModelMonotonic(t *testing.T) {
	r := NewRegistry(nil)
	if _, err := r.Discover("mini", ProtocolZigbee2MQTT, ModelUnknown, ""); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	if err := r.ResolveModel("mini", ModelSonoffMini); err != nil {
		t.Fatalf("ResolveModel() error = %v", err)
	}
	// A later conflicting resolution must not overwrite the first.
	if err := r.ResolveModel("mini", ModelSonoffMiniL2); err != nil {
		t.Fatalf("second ResolveModel() error = %v", err)
	}

	d, _ := r.Get("mini")
	if d.Model != ModelSonoffMini {
		t.Errorf("Model = %q, want first resolution %q", d.Model, ModelSonoffMini)
	}
}

func TestResolveModelUnknownDevice(t *testing.T) {
	r := NewRegistry(nil)
	err := r.ResolveModel("ghost", ModelSonoffMini)
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("ResolveModel() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestGetUnknownDevice(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.Get("nobody")
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Get() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestConcurrentDiscoverSingleEntry(t *testing.T) {
	r := NewRegistry(nil)

	var wg sync.WaitGroup
	createdCount := make(chan bool, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			created, err := r.Discover("racy", ProtocolTasmota, ModelShellyUni, "")
			if err != nil {
				t.Errorf("Discover() error = %v", err)
				return
			}
			createdCount <- created
		}()
	}
	wg.Wait()
	close(createdCount)

	creations := 0
	for created := range createdCount {
		if created {
			creations++
		}
	}
	if creations != 1 {
		t.Errorf("concurrent Discover() created %d entries, want exactly 1", creations)
	}
	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}
}

func TestRestoreSkipsKnownNames(t *testing.T) {
	repo := &MockRepository{listed: []Device{
		{Name: "old_plug", Protocol: ProtocolTasmota, Model: ModelShellyPlugS},
		{Name: "live_plug", Protocol: ProtocolTasmota, Model: ModelShellyUni},
	}}
	r := NewRegistry(repo)

	// Live traffic observed before restore wins over the persisted row.
	if _, err := r.Discover("live_plug", ProtocolZigbee2MQTT, ModelSonoffSmartPlug, ""); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if err := r.Restore(context.Background()); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	live, _ := r.Get("live_plug")
	if live.Protocol != ProtocolZigbee2MQTT {
		t.Errorf("restored over live entry: protocol = %q", live.Protocol)
	}
	if _, err := r.Get("old_plug"); err != nil {
		t.Errorf("persisted device not restored: %v", err)
	}
}

func TestPersistenceFailureDoesNotBlockDiscovery(t *testing.T) {
	repo := &MockRepository{failing: true}
	r := NewRegistry(repo)

	created, err := r.Discover("plug", ProtocolTasmota, ModelShellyPlugS, "")
	if err != nil {
		t.Fatalf("Discover() error = %v, want nil despite repo failure", err)
	}
	if !created {
		t.Error("Discover() created = false, want true")
	}
}

func TestDiscoverPersists(t *testing.T) {
	repo := &MockRepository{}
	r := NewRegistry(repo)

	if _, err := r.Discover("plug", ProtocolTasmota, ModelShellyPlugS, ""); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if repo.upsertCount() != 1 {
		t.Errorf("repository upserts = %d, want 1", repo.upsertCount())
	}
}

func TestNamesAndList(t *testing.T) {
	r := NewRegistry(nil)
	for _, name := range []string{"a", "b", "c"} {
		if _, err := r.Discover(name, ProtocolZigbee2MQTT, ModelUnknown, ""); err != nil {
			t.Fatalf("Discover(%q) error = %v", name, err)
		}
	}

	if got := len(r.Names()); got != 3 {
		t.Errorf("len(Names()) = %d, want 3", got)
	}
	if got := len(r.List()); got != 3 {
		t.Errorf("len(List()) = %d, want 3", got)
	}
}
