package puizcloud

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is read when no configuration file is named explicitly.
const DefaultConfigPath = "puizcloud.hcl"

type SymlinkPolicy string

const (
	// SymlinksDeny refuses any path that passes through a symlink.
	SymlinksDeny SymlinkPolicy = "deny"
	// SymlinksContain follows symlinks whose target stays inside the served root.
	SymlinksContain SymlinkPolicy = "contain"
	// SymlinksChroot evaluates symlinks as if the served root were "/".
	SymlinksChroot SymlinkPolicy = "chroot"
)

func (p SymlinkPolicy) valid() bool {
	switch p {
	case SymlinksDeny, SymlinksContain, SymlinksChroot:
		return true
	}
	return false
}

type Config struct {
	IP         string
	Port       int
	Data       string
	Symlinks   SymlinkPolicy
	HumanSizes bool
	Scan       bool
}

func DefaultConfig() Config {
	return Config{
		IP:       "127.0.0.1",
		Port:     8080,
		Data:     "data/",
		Symlinks: SymlinksContain,
	}
}

// Addr is the listen address for the HTTP service.
func (c Config) Addr() string {
	return net.JoinHostPort(c.IP, strconv.Itoa(c.Port))
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Data) == "" {
		return errors.New("config: data must not be empty")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if !c.Symlinks.valid() {
		return fmt.Errorf("config: unknown symlinks policy %q", c.Symlinks)
	}
	return nil
}

// fileConfig is the on-disk shape. Pointer fields stay nil when a key is
// absent so the default survives.
type fileConfig struct {
	IP         *string `hcl:"ip,optional" toml:"ip" yaml:"ip"`
	Port       *int    `hcl:"port,optional" toml:"port" yaml:"port"`
	Data       *string `hcl:"data,optional" toml:"data" yaml:"data"`
	Symlinks   *string `hcl:"symlinks,optional" toml:"symlinks" yaml:"symlinks"`
	HumanSizes *bool   `hcl:"human_sizes,optional" toml:"human_sizes" yaml:"human_sizes"`
	Scan       *bool   `hcl:"scan,optional" toml:"scan" yaml:"scan"`
}

func (f fileConfig) apply(cfg *Config) {
	if f.IP != nil {
		cfg.IP = *f.IP
	}
	if f.Port != nil {
		cfg.Port = *f.Port
	}
	if f.Data != nil {
		cfg.Data = *f.Data
	}
	if f.Symlinks != nil {
		cfg.Symlinks = SymlinkPolicy(*f.Symlinks)
	}
	if f.HumanSizes != nil {
		cfg.HumanSizes = *f.HumanSizes
	}
	if f.Scan != nil {
		cfg.Scan = *f.Scan
	}
}

var envFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "name", Type: cty.String},
	},
	Type: function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
		return cty.StringVal(os.Getenv(args[0].AsString())), nil
	},
})

func newHCLEvalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{},
		Functions: map[string]function.Function{
			"env": envFunc,
		},
	}
}

// LoadConfig reads an .hcl, .json, .toml, .yaml or .yml file on top of
// DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	var raw fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl", ".json":
		err := hclsimple.DecodeFile(path, newHCLEvalContext(), &raw)
		if err != nil {
			return nil, err
		}
	case ".toml":
		_, err := toml.DecodeFile(path, &raw)
		if err != nil {
			return nil, err
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		err = yaml.Unmarshal(data, &raw)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("config: unsupported file type %q", filepath.Ext(path))
	}

	cfg := DefaultConfig()
	raw.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfigOrDefault behaves like LoadConfig, except that a missing file
// which was not named explicitly yields DefaultConfig.
func LoadConfigOrDefault(path string, explicit bool) (*Config, error) {
	_, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			cfg := DefaultConfig()
			return &cfg, nil
		}
		return nil, err
	}
	return LoadConfig(path)
}
