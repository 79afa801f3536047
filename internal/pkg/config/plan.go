package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RunPlan is the destination/date set of a pipeline run.
// It comes from a YAML file (PIPELINE_PLAN_FILE) or from DESTINATIONS,
// HOTEL_DESTINATIONS and DATES.
type RunPlan struct {
	FlightDestinations []string `yaml:"flight_destinations"`
	HotelDestinations  []string `yaml:"hotel_destinations"`
	Dates              []string `yaml:"dates"`
	Origin             string   `yaml:"origin"`
	FlightsOnly        bool     `yaml:"flights_only"`
	Nights             int      `yaml:"nights"`
}

// LoadPlan reads a YAML run plan. Unknown keys are rejected.
func LoadPlan(path string) (*RunPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read plan %s: %w", ErrConfiguration, path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var plan RunPlan
	if err := dec.Decode(&plan); err != nil {
		return nil, fmt.Errorf("%w: decode plan %s: %w", ErrConfiguration, path, err)
	}
	return &plan, nil
}

// Plan resolves the run plan: the plan file when set, otherwise the
// environment lists. Missing fields in a file fall back to the
// environment values.
func (c *Config) Plan() (*RunPlan, error) {
	envPlan := &RunPlan{
		FlightDestinations: c.Pipeline.FlightDestinations,
		HotelDestinations:  c.Pipeline.HotelDestinations,
		Dates:              c.Pipeline.Dates,
		Origin:             c.Pipeline.Origin,
		FlightsOnly:        !c.Pipeline.HotelsActive(),
		Nights:             c.Pipeline.Nights,
	}

	plan := envPlan
	if c.Pipeline.PlanFile != "" {
		filePlan, err := LoadPlan(c.Pipeline.PlanFile)
		if err != nil {
			return nil, err
		}
		if filePlan.Origin == "" {
			filePlan.Origin = envPlan.Origin
		}
		if filePlan.Nights == 0 {
			filePlan.Nights = envPlan.Nights
		}
		filePlan.FlightsOnly = filePlan.FlightsOnly || envPlan.FlightsOnly
		plan = filePlan
	}

	// Hotel destinations default to the flight destinations.
	if len(plan.HotelDestinations) == 0 && !plan.FlightsOnly {
		plan.HotelDestinations = plan.FlightDestinations
	}

	if len(plan.FlightDestinations) == 0 || len(plan.Dates) == 0 {
		return nil, fmt.Errorf("%w: DESTINATIONS and DATES must be set", ErrConfiguration)
	}
	return plan, nil
}
