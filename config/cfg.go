package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"

	"stylemig/common"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TransformConfig struct {
		Fallback         common.FallbackBehavior `yaml:"fallback"`
		RelationMatching bool                    `yaml:"relation_matching"`
		ImportSource     string                  `yaml:"import_source" validate:"required"`
		Namespace        string                  `yaml:"namespace" validate:"required"`
		StylesIdentifier string                  `yaml:"styles_identifier" validate:"required"`
		Extensions       []string                `yaml:"extensions" validate:"min=1,dive,startswith=."`
		Workers          int                     `yaml:"workers" validate:"gte=0"`
		// OutputNameTemplate names output file relative to destination
		// directory, empty keeps source relative path.
		OutputNameTemplate string `yaml:"output_name_template"`
		// element -> additional attributes forwarded to host elements
		HTMLAttributes map[string][]string `yaml:"html_attributes,omitempty"`
	}

	ThemeConfig struct {
		Identifier   string `yaml:"identifier"`
		ImportSource string `yaml:"import_source" validate:"required_with=Identifier"`
		// Import is the imported name, empty for namespace import.
		Import string `yaml:"import"`
		// Naming of theme path segments: "member" keeps tokens.colors.primary,
		// "camel" produces tokens.colorsPrimary.
		Naming string `yaml:"naming" validate:"omitempty,oneof=member camel"`
	}

	VariableConfig struct {
		Expr           string `yaml:"expr" validate:"required"`
		ImportSource   string `yaml:"import_source"`
		Import         string `yaml:"import" validate:"required_with=ImportSource"`
		DropDefinition bool   `yaml:"drop_definition"`
	}

	HelperConfig struct {
		// Expr may reference call arguments as {{ index .Args 0 }}.
		Expr         string `yaml:"expr"`
		StylesUsage  string `yaml:"styles_usage"`
		ImportSource string `yaml:"import_source"`
		Import       string `yaml:"import" validate:"required_with=ImportSource"`
	}

	AdapterConfig struct {
		Theme     ThemeConfig               `yaml:"theme"`
		Variables map[string]VariableConfig `yaml:"variables,omitempty" validate:"dive,keys,startswith=--,endkeys"`
		Helpers   map[string]HelperConfig   `yaml:"helpers,omitempty"`
		CacheSize int                       `yaml:"cache_size" validate:"gte=0"`
	}

	PrepassConfig struct {
		Path string `yaml:"path,omitempty" sanitize:"path_clean" validate:"omitempty,filepath"`
	}

	Config struct {
		Version   int             `yaml:"version" validate:"eq=1"`
		Transform TransformConfig `yaml:"transform"`
		Adapter   AdapterConfig   `yaml:"adapter"`
		Prepass   PrepassConfig   `yaml:"prepass"`
		Logging   LoggingConfig   `yaml:"logging"`
		Reporting ReporterConfig  `yaml:"reporting"`
	}
)

const (
	// NOTE: must match yaml field name above, helper expressions are expanded
	// per call, not when configuration is loaded
	HelperExprFieldName         = "expr"
	StylesUsageFieldName        = "styles_usage"
	OutputNameTemplateFieldName = "output_name_template"
)

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(OutputNameTemplateFieldName),
	gencfg.WithDoNotExpandField(HelperExprFieldName),
	gencfg.WithDoNotExpandField(StylesUsageFieldName),
)

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, fmt.Errorf("failed to sanitize configuration: %w", err)
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, fmt.Errorf("failed to validate configuration: %w", err)
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %w", err)
	}
	return data, nil
}

// HasExtension reports whether file extension is one of configured ones.
func (conf *TransformConfig) HasExtension(ext string) bool {
	for _, e := range conf.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}
