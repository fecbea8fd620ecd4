package resolver

import (
	"flag"

	"github.com/zachfi/zkit/pkg/util"

	"github.com/zachfi/nowplaying/pkg/provider"
	"github.com/zachfi/nowplaying/pkg/title"
)

type Config struct {
	// StationsFile replaces the built-in provider table when set.
	StationsFile string `yaml:"stations-file,omitempty"`

	ICY   provider.ICYConfig    `yaml:"icy,omitempty"`
	API   provider.ClientConfig `yaml:"api,omitempty"`
	Title title.Classifier      `yaml:"title,omitempty"`
}

func (cfg *Config) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	f.StringVar(&cfg.StationsFile, util.PrefixConfig(prefix, "stations-file"), "", "YAML provider table to use instead of the built-in one.")

	cfg.ICY.RegisterFlagsAndApplyDefaults(util.PrefixConfig(prefix, "icy"), f)
	cfg.API.RegisterFlagsAndApplyDefaults(util.PrefixConfig(prefix, "api"), f)
	cfg.Title.RegisterFlagsAndApplyDefaults(util.PrefixConfig(prefix, "title"), f)
}
