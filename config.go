package latexast

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/texdoc/latexast/stage1"
)

// Config carries the parser's knobs. The zero value behaves like
// DefaultConfig: a non-positive MaxNestingDepth falls back to
// stage1.DefaultMaxNestingDepth and a nil Logger disables tracing.
type Config struct {
	// MaxNestingDepth bounds recursive scope/argument/maths parsing so
	// adversarial input like {{{{…}}}} cannot overflow the stack.
	MaxNestingDepth int `yaml:"max_nesting_depth"`

	// Logger, when set, receives debug-level tracing at stage
	// transitions. Leave nil for the pure-function behaviour.
	Logger logrus.FieldLogger `yaml:"-"`
}

// DefaultConfig returns the configuration used by the package-level
// entry points.
func DefaultConfig() Config {
	return Config{MaxNestingDepth: stage1.DefaultMaxNestingDepth}
}

// LoadConfig reads a YAML configuration file. Missing fields keep their
// defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.MaxNestingDepth <= 0 {
		cfg.MaxNestingDepth = stage1.DefaultMaxNestingDepth
	}
	return cfg, nil
}
