// Package config loads and validates the voteperf YAML configuration.
package config

import (
	"context"
	"io/fs"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/prysmaticlabs/voteperf/audit"
	"github.com/prysmaticlabs/voteperf/stream"
	"gopkg.in/yaml.v2"
)

// DefaultFile is the configuration read when no path is given.
const DefaultFile = "config.yaml"

// VoteAccountLength is the size of a decoded vote account public key.
const VoteAccountLength = 32

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the file format.
type Config struct {
	GRPCURL            string       `yaml:"grpc_url" validate:"required,url"`
	XToken             string       `yaml:"x_token,omitempty"`
	VoteAccount        string       `yaml:"vote_account" validate:"required,min=32,max=44,base58key"`
	Commitment         string       `yaml:"commitment" validate:"oneof=processed confirmed finalized"`
	PerformanceLogging audit.Filter `yaml:"performance_logging"`
	Audit              Audit        `yaml:"audit"`
}

// Audit configures where and how often audit events are written.
type Audit struct {
	Dir           string        `yaml:"dir" validate:"required"`
	BatchSize     int           `yaml:"batch_size" validate:"gt=0"`
	FlushInterval time.Duration `yaml:"flush_interval" validate:"gt=0"`
}

// Default returns the configuration used when no file exists. It has no
// endpoint or vote account and does not validate until both are set.
func Default() *Config {
	return &Config{
		Commitment:         stream.Finalized.String(),
		PerformanceLogging: audit.DefaultFilter(),
		Audit: Audit{
			Dir:           audit.DefaultDir,
			BatchSize:     audit.DefaultBatchSize,
			FlushInterval: audit.DefaultFlushInterval,
		},
	}
}

// Load reads the configuration at path, a file or an http(s) URL, over the
// defaults. Keys it does not know are rejected. The result is not validated.
func Load(ctx context.Context, path string) (*Config, error) {
	cfg := Default()
	var err error
	if isRemote(path) {
		err = unmarshalFromURL(ctx, path, cfg)
	} else {
		err = unmarshalFromFile(path, cfg)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "could not load configuration from %s", path)
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields the defaults
// with a warning.
func LoadOrDefault(ctx context.Context, path string) (*Config, error) {
	cfg, err := Load(ctx, path)
	if errors.Is(err, fs.ErrNotExist) {
		log.WithField("path", path).Warn("Configuration file not found, using defaults")
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}
	log.WithField("path", path).Info("Loaded configuration")
	return cfg, nil
}

// Save validates cfg and writes it to path.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "could not marshal configuration")
	}
	if err := os.WriteFile(path, b, 0600); err != nil {
		return errors.Wrap(err, "could not write configuration")
	}
	return nil
}

// Validate checks every field and the audit filter bounds.
func (c *Config) Validate() error {
	if err := newValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return errors.Wrap(ErrInvalidConfig, describe(verrs))
		}
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}
	if err := c.PerformanceLogging.Validate(); err != nil {
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}
	return nil
}

// VoteAccountKey decodes the vote account.
func (c *Config) VoteAccountKey() ([]byte, error) {
	key, err := base58.Decode(c.VoteAccount)
	if err != nil {
		return nil, errors.Wrap(err, "could not decode vote account")
	}
	if len(key) != VoteAccountLength {
		return nil, errors.Errorf("vote account decodes to %d bytes, want %d", len(key), VoteAccountLength)
	}
	return key, nil
}

// CommitmentLevel parses the commitment.
func (c *Config) CommitmentLevel() (stream.CommitmentLevel, error) {
	return stream.ParseCommitment(c.Commitment)
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("base58key", func(fl validator.FieldLevel) bool {
		key, err := base58.Decode(fl.Field().String())
		return err == nil && len(key) == VoteAccountLength
	}); err != nil {
		panic(err)
	}
	return v
}

func describe(verrs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" cannot be empty")
		case "min", "max":
			msgs = append(msgs, field+" appears to be invalid (should be 32-44 characters)")
		case "base58key":
			msgs = append(msgs, field+" is not a base58 encoded 32 byte key")
		case "oneof":
			msgs = append(msgs, field+" must be one of "+fe.Param())
		default:
			msgs = append(msgs, field+" failed "+fe.Tag()+" check")
		}
	}
	return strings.Join(msgs, "; ")
}
