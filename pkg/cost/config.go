package cost

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned for fleet files that cannot be planned.
var ErrInvalidConfig = errors.New("invalid fleet config")

// MaxVehicles bounds the vehicle count of a single fleet.
const MaxVehicles = 10_000

// Fleet requests Count vehicles of the named type.
type Fleet struct {
	Vehicle string `yaml:"vehicle" json:"vehicle"`
	Count   int    `yaml:"count" json:"count"`
}

// Config is a fleet file: extra vehicle types and the fleets to plan for.
//
//	vehicle_types:
//	  - name: plow_type_3
//	    speed_kmh: 15
//	    ...
//	fleets:
//	  - vehicle: plow_type_1
//	    count: 3
type Config struct {
	VehicleTypes []VehicleType `yaml:"vehicle_types"`
	Fleets       []Fleet       `yaml:"fleets"`
}

// LoadFleet reads and validates a YAML fleet file.
func LoadFleet(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fleet file: %w", err)
	}
	cfg, err := ParseFleet(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseFleet decodes and validates a YAML fleet document. Unknown keys are
// rejected. Built-in vehicle types are added unless the document redefines
// a type of the same name.
func ParseFleet(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	defined := make(map[string]bool, len(cfg.VehicleTypes))
	for _, v := range cfg.VehicleTypes {
		defined[v.Name] = true
	}
	for _, v := range DefaultVehicleTypes() {
		if !defined[v.Name] {
			cfg.VehicleTypes = append(cfg.VehicleTypes, v)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every vehicle type, that names are unique, and that
// every fleet names a known type with 1 to MaxVehicles vehicles.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.VehicleTypes))
	for _, v := range c.VehicleTypes {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		if seen[v.Name] {
			return fmt.Errorf("%w: vehicle type %q defined twice", ErrInvalidConfig, v.Name)
		}
		seen[v.Name] = true
	}
	for i, f := range c.Fleets {
		if !seen[f.Vehicle] {
			return fmt.Errorf("%w: fleet %d: unknown vehicle type %q", ErrInvalidConfig, i, f.Vehicle)
		}
		if f.Count < 1 || f.Count > MaxVehicles {
			return fmt.Errorf("%w: fleet %d: count must be between 1 and %d, got %d", ErrInvalidConfig, i, MaxVehicles, f.Count)
		}
	}
	return nil
}

// Lookup returns the vehicle type with the given name.
func (c *Config) Lookup(name string) (VehicleType, bool) {
	for _, v := range c.VehicleTypes {
		if v.Name == name {
			return v, true
		}
	}
	return VehicleType{}, false
}
