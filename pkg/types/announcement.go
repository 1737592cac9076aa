package types

// Announcement is a configured message together with its recurrence. An
// announcement either repeats on a fixed interval (Every) or on a weekly
// day/time schedule (Days plus Times); the two forms are mutually exclusive.
type Announcement struct {
	Name    string   `yaml:"name"`
	Message string   `yaml:"message"`
	Every   string   `yaml:"every,omitempty"`
	Days    []string `yaml:"days,omitempty"`
	Times   []string `yaml:"times,omitempty"`
}
