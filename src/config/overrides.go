package config

// Overrides carries command-line flag values, the top layer of the
// cascade. Empty strings mean "flag not set"; three-state booleans use
// pointers.
type Overrides struct {
	Registry   string
	Namespace  string
	Repository string
	Image      string
	Tag        string
	Version    string
	Platforms  string // comma-separated
	Builder    string
	Context    string
	Dockerfile string
	Token      string
	Rolling    *bool
}

// Apply overlays set override values onto cfg. Runs after ApplyEnv, so
// flags win over everything.
func (c *Config) Apply(o Overrides) {
	if o.Registry != "" {
		c.Registry = o.Registry
	}
	if o.Namespace != "" {
		c.Image.Namespace = o.Namespace
	}
	if o.Repository != "" {
		c.Image.Repository = o.Repository
	}
	if o.Image != "" {
		c.Image.Name = o.Image
	}
	if o.Tag != "" {
		c.Image.Tag = o.Tag
	}
	if o.Version != "" {
		c.Image.Version = o.Version
	}
	if o.Platforms != "" {
		c.Build.Platforms = SplitPlatforms(o.Platforms)
	}
	if o.Builder != "" {
		c.Build.Builder = o.Builder
	}
	if o.Context != "" {
		c.Build.Context = o.Context
	}
	if o.Dockerfile != "" {
		c.Build.Dockerfile = o.Dockerfile
	}
	if o.Token != "" {
		c.Token = o.Token
	}
	if o.Rolling != nil {
		c.Image.Rolling = *o.Rolling
	}
}
