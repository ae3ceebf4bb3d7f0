package domain

// Profile is the static descriptive content for one archetype.
// Traits and Exemplars are ordered; display order matters.
type Profile struct {
	Archetype         Archetype `json:"archetype" yaml:"archetype"`
	Description       string    `json:"description" yaml:"description"`
	Traits            []string  `json:"traits" yaml:"traits"`
	Exemplars         []string  `json:"exemplars" yaml:"exemplars"`
	SuggestedAbility  string    `json:"suggested_ability" yaml:"suggested_ability"`
	DivinationOutcome string    `json:"divination_outcome" yaml:"divination_outcome"`

	// Element is the elemental affinity shown next to the badge.
	Element string `json:"element,omitempty" yaml:"element"`
	// Color is the badge colour as a hex string.
	Color string `json:"color,omitempty" yaml:"color"`
}

// Clone returns a deep copy so callers cannot mutate shared static data.
func (p Profile) Clone() Profile {
	out := p
	out.Traits = append([]string(nil), p.Traits...)
	out.Exemplars = append([]string(nil), p.Exemplars...)
	return out
}
