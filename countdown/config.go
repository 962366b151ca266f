package countdown

// Config holds countdown display configuration.
type Config struct {
	// Target is the celebration instant, e.g. "September 5, 2025 00:00:00".
	Target string `yaml:"target"`
	// Location is the IANA zone Target is read in when it carries no zone.
	Location           string `yaml:"location"`
	Title              string `yaml:"title"`
	CelebrationMessage string `yaml:"celebration_message"`
}

// Defaults applies default values to the config.
func (c *Config) Defaults() {
	if c.Target == "" {
		c.Target = "September 5, 2025 00:00:00"
	}
	if c.Title == "" {
		c.Title = "Counting down to the big day"
	}
	if c.CelebrationMessage == "" {
		c.CelebrationMessage = "Happy Birthday!"
	}
}
