// Package config loads layered configuration for the gateway and node
// binaries: config.yaml (optional), overlaid by CRYPTOSHARD_*
// environment variables, overlaid by CLI flags.
//
// Grounded on internal/config/config.go (env-var-driven Config struct,
// getEnv-with-default helper) and cmd/main.go's
// config.LoadConfig(configPath, rootCmd) call shape, generalized from
// the teacher's unwired viper dependency (confirmed absent from every
// import in the teacher's source tree) to an actually-wired
// viper+cobra layering, since the richer bucket/region configuration
// cmd/main.go and the test files expect only makes sense if viper is
// doing the layering it was declared for.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	apperr "github.com/zzenonn/cryptoshard/internal/errors"
)

// Config holds everything the gateway and node binaries need except
// the master key, which is read directly from the OS environment by
// internal/vault and never flows through here (spec.md §6.4).
type Config struct {
	LogLevel string `mapstructure:"log_level"`

	// NodeURLs is the ordered list N[0..m-1] (spec.md §3). Its length
	// must equal MTotal.
	NodeURLs []string `mapstructure:"node_urls"`

	KRequired int `mapstructure:"k_required"`
	MTotal    int `mapstructure:"m_total"`

	MetadataDir string `mapstructure:"metadata_dir"`

	// GatewayAddr is the gateway's own HTTP listen address.
	GatewayAddr string `mapstructure:"gateway_addr"`
	// NodeAddr is a storage node's own HTTP listen address.
	NodeAddr string `mapstructure:"node_addr"`
	// NodeStorageDir is where a storage node keeps shard blobs.
	NodeStorageDir string `mapstructure:"node_storage_dir"`

	// Optional supplemental components (SPEC_FULL.md [DOMAIN+]).
	DynamoDBTable  string `mapstructure:"dynamodb_table"`
	ArchiveBucket  string `mapstructure:"archive_bucket"`
	ArchivePlatform string `mapstructure:"archive_platform"` // "s3" or "gcs"
}

const envPrefix = "CRYPTOSHARD"

// defaults mirrors the teacher's getEnv-with-default posture, applied
// through viper.SetDefault instead of a bespoke helper.
func defaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("k_required", 3)
	v.SetDefault("m_total", 5)
	v.SetDefault("metadata_dir", "./metadata")
	v.SetDefault("gateway_addr", ":8080")
	v.SetDefault("node_addr", ":9090")
	v.SetDefault("node_storage_dir", "./storage")
}

// Load layers config.yaml (if present at configPath), CRYPTOSHARD_*
// environment variables, and any flags already parsed onto cmd, in
// that order of increasing precedence, then validates the result.
func Load(configPath string, cmd *cobra.Command) (*Config, error) {
	v := viper.New()
	defaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		_, missing := err.(viper.ConfigFileNotFoundError)
		if configPath != "" || !missing {
			return nil, fmt.Errorf("%w: reading config file: %v", apperr.ErrConfiguration, err)
		}
	}

	if cmd != nil {
		// Flags are dashed (--node-urls) while config keys use
		// underscores (node_urls), so each flag is bound under its key.
		var bindErr error
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			if err := v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return nil, fmt.Errorf("%w: binding flags: %v", apperr.ErrConfiguration, bindErr)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrConfiguration, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.KRequired < 1 || c.KRequired > c.MTotal {
		return fmt.Errorf("%w: k_required=%d m_total=%d violates 1<=k<=m", apperr.ErrConfiguration, c.KRequired, c.MTotal)
	}
	if len(c.NodeURLs) > 0 && len(c.NodeURLs) != c.MTotal {
		return fmt.Errorf("%w: %d node_urls configured, want m_total=%d", apperr.ErrConfiguration, len(c.NodeURLs), c.MTotal)
	}
	return nil
}
