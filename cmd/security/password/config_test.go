package password

import "testing"

func TestDefaultConfig_Check(t *testing.T) {
	if err := DefaultConfig().Check(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
}

func TestCheck_Rejects(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Config)
	}{
		{"unknown algorithm", func(c *Config) { c.Algorithm = "md5" }},
		{"tiny memory", func(c *Config) { c.Params.MemoryKiB = 1024 }},
		{"zero iterations", func(c *Config) { c.Params.Iterations = 0 }},
		{"short salt", func(c *Config) { c.Params.SaltLength = 4 }},
		{"bcrypt cost too high", func(c *Config) { c.BcryptCost = 31 }},
		{"min > max", func(c *Config) { c.Policy.MinLength = 20; c.Policy.MaxLength = 10 }},
		{"bcrypt with long max", func(c *Config) { c.Algorithm = AlgorithmBcrypt; c.Policy.MaxLength = 128 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mut(&cfg)
			if err := cfg.Check(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
