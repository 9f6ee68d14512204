package config

// DefaultConfig returns the baseline configuration before file and
// environment overlays.
func DefaultConfig() *Config {
	return &Config{
		Port:            8080,
		DataDir:         ".stagebox",
		ServerURL:       "http://localhost:8080",
		AllowAllOrigins: false,
		IgnoreGlobs:     nil,
		MaxUploadMB:     100,
	}
}
