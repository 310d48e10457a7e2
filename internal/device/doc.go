// Package device provides the device registry for Homewire.
//
// The registry is the catalogue of every device whose traffic has been
// observed on the broker. It is populated from discovery announcements, the
// zigbee2mqtt bridge roster and Tasmota discovery configs; other traffic
// only refreshes LastSeen. No message is ever sent to a device to enrol it.
//
// # Key Types
//
//   - Device: a registry entry (name, protocol, model, address, timestamps)
//   - Protocol: the transport dialect the device speaks (zigbee2mqtt, tasmota)
//   - Model: the product identifier that selects the device's codec
//
// # Discipline
//
// Discovery is first-writer-wins: the first observation of a name creates
// the entry, later observations only update LastSeen or fill missing fields.
// Model resolution is monotonic: once set, a model is never replaced.
//
// # Usage
//
//	registry := device.NewRegistry(nil)
//	registry.SetLogger(log)
//
//	created, err := registry.Discover("kitchen_plug",
//	    device.ProtocolTasmota, device.ModelShellyPlugS, "")
//	if err != nil {
//	    return err
//	}
//
//	dev, err := registry.Get("kitchen_plug")
//
// Passing a Repository to NewRegistry mirrors the current registry into
// SQLite so a restart starts from the last known devices.
//
// # Thread Safety
//
// The Registry is safe for concurrent use. All operations are protected by
// a read-write mutex.
package device
