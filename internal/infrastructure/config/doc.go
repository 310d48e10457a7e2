// Package config loads and validates Homewire's configuration.
//
// Settings layer in a fixed order: built-in defaults, then the YAML file,
// then HOMEWIRE_* environment variables, then Validate. The driver's
// command line flags sit on top of all of these.
//
// Broker credentials belong in environment variables
// (HOMEWIRE_MQTT_USERNAME, HOMEWIRE_MQTT_PASSWORD) rather than in the
// file, and the file itself should be mode 0600 when they are in it
// anyway.
package config
