package capture

// Config holds capture device settings. Applied when a device is opened;
// file and stream sources ignore it.
type Config struct {
	// Resolution requested from the device. Grabbers that cannot honor it
	// fall back to their native mode; frames carry their real dimensions.
	Width  int `json:"width"`
	Height int `json:"height"`

	// Framerate is the target capture FPS. The analysis pipeline drops
	// frames it cannot keep up with, so higher rates only cost capture
	// bandwidth, never queue growth.
	Framerate int `json:"framerate"`
}

// DefaultConfig returns the recommended capture configuration: 1080p at 30,
// enough detail for ROI matchers on UI elements without saturating USB
// grabbers.
func DefaultConfig() Config {
	return Config{
		Width:     1920,
		Height:    1080,
		Framerate: 30,
	}
}

// Preset names for common capture setups.
const (
	PresetDefault = "default"
	Preset720p    = "720p"
	Preset1080p   = "1080p"
	Preset4K      = "4k"
	PresetLowLoad = "lowload"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault: DefaultConfig(),
		Preset720p:    HD720Config(),
		Preset1080p:   DefaultConfig(),
		Preset4K:      UHD4KConfig(),
		PresetLowLoad: LowLoadConfig(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{PresetDefault, Preset720p, Preset1080p, Preset4K, PresetLowLoad}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	if cfg, ok := Presets()[name]; ok {
		return &cfg
	}
	return nil
}

// HD720Config returns 720p configuration. Good balance when matcher ROIs
// were calibrated against 720p captures.
func HD720Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1280
	cfg.Height = 720
	return cfg
}

// UHD4KConfig returns 4K configuration for grabbers that deliver it.
// Lower framerate keeps per-frame analysis affordable.
func UHD4KConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 3840
	cfg.Height = 2160
	cfg.Framerate = 15
	return cfg
}

// LowLoadConfig returns a low-CPU configuration for constrained hosts.
func LowLoadConfig() Config {
	cfg := HD720Config()
	cfg.Framerate = 10
	return cfg
}

// Validate checks the config values. Returns a list of validation errors,
// or nil if valid.
func (c *Config) Validate() []string {
	var errors []string
	if c.Width < 160 || c.Width > 7680 {
		errors = append(errors, "width must be between 160 and 7680")
	}
	if c.Height < 120 || c.Height > 4320 {
		errors = append(errors, "height must be between 120 and 4320")
	}
	if c.Framerate < 1 || c.Framerate > 120 {
		errors = append(errors, "framerate must be between 1 and 120")
	}
	return errors
}
