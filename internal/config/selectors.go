package config

// Selectors are the CSS selectors the locator queries. Any field left empty
// in YAML keeps its default.
type Selectors struct {
	Buttons       string   `yaml:"buttons"`
	ListItems     []string `yaml:"list_items"`
	Name          string   `yaml:"name"`
	ProfileLink   string   `yaml:"profile_link"`
	AddNote       string   `yaml:"add_note"`
	NoteField     string   `yaml:"note_field"`
	Send          string   `yaml:"send"`
	Dismiss       []string `yaml:"dismiss"`
	Next          string   `yaml:"next"`
	Banner        string   `yaml:"banner"`
	DisabledClass string   `yaml:"disabled_class"`
}

// Patterns are the locale-specific phrases matched against element text.
// Adding a locale is a matter of appending phrases here.
type Patterns struct {
	ConnectLabels []string `yaml:"connect_labels"`
	PendingLabels []string `yaml:"pending_labels"`
	RateLimit     []string `yaml:"rate_limit"`
	Acknowledge   []string `yaml:"acknowledge"`
}

// DefaultSelectors returns the selectors for the people-search results page
func DefaultSelectors() Selectors {
	return Selectors{
		Buttons:       "button",
		ListItems:     []string{"li", ".entity-result"},
		Name:          `span[aria-hidden="true"]`,
		ProfileLink:   `a[href*="/in/"]`,
		AddNote:       `button[aria-label="Add a note"]`,
		NoteField:     "textarea#custom-message",
		Send:          `button[aria-label="Send invitation"]`,
		Dismiss:       []string{`button[aria-label="Dismiss"]`, `button[aria-label="Cancel"]`},
		Next:          `button[aria-label="Next"]`,
		Banner:        "div",
		DisabledClass: "artdeco-button--disabled",
	}
}

// DefaultPatterns returns the English and Portuguese phrase sets
func DefaultPatterns() Patterns {
	return Patterns{
		ConnectLabels: []string{"Connect", "Conectar"},
		PendingLabels: []string{"Pending", "Pendente"},
		RateLimit: []string{
			"weekly invitation limit",
			"you've reached the weekly limit",
			"limite semanal",
			"convites semanais",
		},
		Acknowledge: []string{"got it", "entendi", "ok"},
	}
}

func (s Selectors) withDefaults() Selectors {
	d := DefaultSelectors()
	if s.Buttons == "" {
		s.Buttons = d.Buttons
	}
	if len(s.ListItems) == 0 {
		s.ListItems = d.ListItems
	}
	if s.Name == "" {
		s.Name = d.Name
	}
	if s.ProfileLink == "" {
		s.ProfileLink = d.ProfileLink
	}
	if s.AddNote == "" {
		s.AddNote = d.AddNote
	}
	if s.NoteField == "" {
		s.NoteField = d.NoteField
	}
	if s.Send == "" {
		s.Send = d.Send
	}
	if len(s.Dismiss) == 0 {
		s.Dismiss = d.Dismiss
	}
	if s.Next == "" {
		s.Next = d.Next
	}
	if s.Banner == "" {
		s.Banner = d.Banner
	}
	if s.DisabledClass == "" {
		s.DisabledClass = d.DisabledClass
	}
	return s
}

func (p Patterns) withDefaults() Patterns {
	d := DefaultPatterns()
	if len(p.ConnectLabels) == 0 {
		p.ConnectLabels = d.ConnectLabels
	}
	if len(p.PendingLabels) == 0 {
		p.PendingLabels = d.PendingLabels
	}
	if len(p.RateLimit) == 0 {
		p.RateLimit = d.RateLimit
	}
	if len(p.Acknowledge) == 0 {
		p.Acknowledge = d.Acknowledge
	}
	return p
}
