package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultProgressUpdateThreshold is the minimum start-to-due span for which a
// pending deficient item is asked for a progress note.
const DefaultProgressUpdateThreshold = 5 * 24 * time.Hour

// Rules is the loaded (never derived) configuration surface of the
// deficient item engine.
type Rules struct {
	// Eligibility maps a lower-cased main input type to a per-selection
	// "is deficient" flag.
	Eligibility map[string][]bool `yaml:"eligibility"`

	RequiredActionStates  []string `yaml:"requiredActionStates"`
	FollowUpActionStates  []string `yaml:"followUpActionStates"`
	OverdueEligibleStates []string `yaml:"overdueEligibleStates"`
	ExcludedCountStates   []string `yaml:"excludedPropertyNumOfDeficientItemsStates"`

	// ProxyAttributes lists deficient item attributes mirrored from the
	// source inspection item.
	ProxyAttributes []string `yaml:"proxyAttributes"`

	ProgressUpdateThreshold time.Duration `yaml:"progressUpdateThreshold"`
}

// DefaultRules returns built-in rules used when no rules file is configured.
func DefaultRules() *Rules {
	return &Rules{
		Eligibility: map[string][]bool{
			"twoactions_checkmarkx":             {false, true},
			"twoactions_thumbs":                 {false, true},
			"threeactions_checkmarkexclamationx": {false, true, true},
			"threeactions_abc":                  {false, true, true},
			"fiveactions_onetofive":             {true, true, true, false, false},
			"oneaction_notes":                   {false},
		},
		RequiredActionStates:  []string{"requires-action", "go-back", "overdue"},
		FollowUpActionStates:  []string{"completed", "incomplete"},
		OverdueEligibleStates: []string{"pending", "requires-progress-update"},
		ExcludedCountStates:   []string{"closed"},
		ProxyAttributes: []string{
			"itemAdminEdits",
			"itemInspectorNotes",
			"itemMainInputSelection",
			"itemMainInputType",
			"itemPhotosData",
			"hasItemPhotoData",
			"itemScore",
			"itemTitle",
			"sectionSubtitle",
			"sectionTitle",
			"sectionType",
		},
		ProgressUpdateThreshold: DefaultProgressUpdateThreshold,
	}
}

// LoadRules reads a YAML rules file. Keys absent from the file keep their
// DefaultRules value.
func LoadRules(path string) (*Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	var file Rules
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}
	rules.overlay(&file)
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *Rules) overlay(file *Rules) {
	if file.Eligibility != nil {
		r.Eligibility = file.Eligibility
	}
	if file.RequiredActionStates != nil {
		r.RequiredActionStates = file.RequiredActionStates
	}
	if file.FollowUpActionStates != nil {
		r.FollowUpActionStates = file.FollowUpActionStates
	}
	if file.OverdueEligibleStates != nil {
		r.OverdueEligibleStates = file.OverdueEligibleStates
	}
	if file.ExcludedCountStates != nil {
		r.ExcludedCountStates = file.ExcludedCountStates
	}
	if file.ProxyAttributes != nil {
		r.ProxyAttributes = file.ProxyAttributes
	}
	if file.ProgressUpdateThreshold != 0 {
		r.ProgressUpdateThreshold = file.ProgressUpdateThreshold
	}
}

// Validate enforces the minimum shape the engine relies on.
func (r *Rules) Validate() error {
	var errs []error
	if len(r.Eligibility) == 0 {
		errs = append(errs, errors.New("eligibility matrix is required"))
	}
	for key := range r.Eligibility {
		if key != strings.ToLower(key) {
			errs = append(errs, fmt.Errorf("eligibility key %q must be lower case", key))
		}
	}
	if len(r.OverdueEligibleStates) == 0 {
		errs = append(errs, errors.New("overdueEligibleStates is required"))
	}
	if len(r.RequiredActionStates) == 0 {
		errs = append(errs, errors.New("requiredActionStates is required"))
	}
	if r.ProgressUpdateThreshold <= 0 {
		errs = append(errs, errors.New("progressUpdateThreshold must be positive"))
	}
	return errors.Join(errs...)
}

// IsEligible reports whether selection of mainInputType marks an item deficient.
func (r *Rules) IsEligible(mainInputType string, selection int) bool {
	flags, ok := r.Eligibility[strings.ToLower(mainInputType)]
	if !ok || selection < 0 || selection >= len(flags) {
		return false
	}
	return flags[selection]
}

func (r *Rules) IsRequiredAction(state string) bool {
	return slices.Contains(r.RequiredActionStates, state)
}

func (r *Rules) IsFollowUpAction(state string) bool {
	return slices.Contains(r.FollowUpActionStates, state)
}

func (r *Rules) IsOverdueEligible(state string) bool {
	return slices.Contains(r.OverdueEligibleStates, state)
}

func (r *Rules) IsExcludedFromCount(state string) bool {
	return slices.Contains(r.ExcludedCountStates, state)
}

// RollupClass names the property counter a state contributes to. States outside
// every configured set fall in the plain "counted" class.
func (r *Rules) RollupClass(state string) string {
	switch {
	case r.IsExcludedFromCount(state):
		return "excluded"
	case r.IsRequiredAction(state):
		return "required-action"
	case r.IsFollowUpAction(state):
		return "follow-up"
	default:
		return "counted"
	}
}
