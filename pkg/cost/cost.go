// Package cost prices a route: operating time and money per vehicle and
// per fleet, from distances and vehicle-type parameters.
package cost

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidVehicle is returned for vehicle parameters that cannot price a route.
var ErrInvalidVehicle = errors.New("invalid vehicle type")

// VehicleType holds the operating parameters of one kind of vehicle.
type VehicleType struct {
	Name                   string  `yaml:"name" json:"name"`
	SpeedKmh               float64 `yaml:"speed_kmh" json:"speed_kmh"`
	FixedCost              float64 `yaml:"fixed_cost" json:"fixed_cost"`
	CostPerKm              float64 `yaml:"cost_per_km" json:"cost_per_km"`
	HourlyRateNormal       float64 `yaml:"hourly_rate_normal" json:"hourly_rate_normal"`
	HourlyRateOvertime     float64 `yaml:"hourly_rate_overtime" json:"hourly_rate_overtime"`
	OvertimeThresholdHours float64 `yaml:"overtime_threshold_hours" json:"overtime_threshold_hours"`
}

// Validate rejects a missing name, a non-positive speed, and negative
// costs, rates or threshold.
func (v VehicleType) Validate() error {
	if v.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidVehicle)
	}
	if !(v.SpeedKmh > 0) || math.IsInf(v.SpeedKmh, 0) {
		return fmt.Errorf("%w: %s: speed_kmh must be positive, got %v", ErrInvalidVehicle, v.Name, v.SpeedKmh)
	}
	for _, f := range []struct {
		name string
		val  float64
	}{
		{"fixed_cost", v.FixedCost},
		{"cost_per_km", v.CostPerKm},
		{"hourly_rate_normal", v.HourlyRateNormal},
		{"hourly_rate_overtime", v.HourlyRateOvertime},
		{"overtime_threshold_hours", v.OvertimeThresholdHours},
	} {
		if f.val < 0 || math.IsNaN(f.val) {
			return fmt.Errorf("%w: %s: %s must not be negative, got %v", ErrInvalidVehicle, v.Name, f.name, f.val)
		}
	}
	return nil
}

// Time returns the hours needed to drive km kilometers.
func (v VehicleType) Time(km float64) float64 {
	return km / v.SpeedKmh
}

// HourlyCost returns the labour cost of h hours: the first
// OvertimeThresholdHours at the normal rate, the rest at the overtime rate.
func (v VehicleType) HourlyCost(h float64) float64 {
	normal := math.Min(h, v.OvertimeThresholdHours)
	overtime := math.Max(0, h-v.OvertimeThresholdHours)
	return normal*v.HourlyRateNormal + overtime*v.HourlyRateOvertime
}

// Cost returns the full cost of one vehicle driving km kilometers.
func (v VehicleType) Cost(km float64) float64 {
	return v.FixedCost + v.CostPerKm*km + v.HourlyCost(v.Time(km))
}

// VehicleEstimate is the priced route of one vehicle.
type VehicleEstimate struct {
	Km    float64 `json:"km"`
	Hours float64 `json:"hours"`
	Cost  float64 `json:"cost"`
}

// FleetEstimate prices a fleet of one vehicle type. The fleet finishes when
// its slowest vehicle does, so MaxHours is the fleet time; VehicleHours is
// the sum of all vehicle times.
type FleetEstimate struct {
	Vehicle      string            `json:"vehicle"`
	Vehicles     []VehicleEstimate `json:"vehicles"`
	TotalKm      float64           `json:"total_km"`
	TotalCost    float64           `json:"total_cost"`
	MaxHours     float64           `json:"max_hours"`
	VehicleHours float64           `json:"vehicle_hours"`
}

// Estimate prices one route per vehicle, given the distance of each in
// kilometers. Every vehicle pays its fixed cost, even with an empty route.
func Estimate(v VehicleType, segmentKm []float64) FleetEstimate {
	est := FleetEstimate{
		Vehicle:  v.Name,
		Vehicles: make([]VehicleEstimate, len(segmentKm)),
	}
	for i, km := range segmentKm {
		h := v.Time(km)
		c := v.Cost(km)
		est.Vehicles[i] = VehicleEstimate{Km: km, Hours: h, Cost: c}
		est.TotalKm += km
		est.TotalCost += c
		est.VehicleHours += h
		est.MaxHours = math.Max(est.MaxHours, h)
	}
	return est
}

// DefaultVehicleTypes returns the built-in vehicle types: a sidewalk-class
// plow, a street plow and a survey drone.
func DefaultVehicleTypes() []VehicleType {
	return []VehicleType{
		{
			Name:                   "plow_type_1",
			SpeedKmh:               10,
			FixedCost:              500,
			CostPerKm:              1.1,
			HourlyRateNormal:       1.1,
			HourlyRateOvertime:     1.3,
			OvertimeThresholdHours: 8,
		},
		{
			Name:                   "plow_type_2",
			SpeedKmh:               20,
			FixedCost:              800,
			CostPerKm:              1.3,
			HourlyRateNormal:       1.3,
			HourlyRateOvertime:     1.5,
			OvertimeThresholdHours: 8,
		},
		{
			Name:                   "drone",
			SpeedKmh:               60,
			FixedCost:              100,
			CostPerKm:              0.01,
			HourlyRateNormal:       0,
			HourlyRateOvertime:     0,
			OvertimeThresholdHours: 24,
		},
	}
}
