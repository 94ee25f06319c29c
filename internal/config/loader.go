package config

import (
	"log/slog"

	"github.com/spf13/viper"
)

// Loader reads an optional defaults file (loadstone.yaml) layered over the
// built-in defaults. Missing file is not an error.
type Loader struct {
	v *viper.Viper
}

func NewLoader() *Loader {
	v := viper.New()
	v.SetConfigName("loadstone")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/loadstone")
	return &Loader{v: v}
}

// NewLoaderWithViper wires an externally configured viper instance,
// mainly for tests.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{v: v}
}

// Load returns the registered global defaults: built-ins overridden by any
// values found in the defaults file.
func (l *Loader) Load() (Defaults, error) {
	d := BuiltinDefaults()

	l.v.SetDefault("model", d.Model)
	l.v.SetDefault("word_limit", d.WordLimit)
	l.v.SetDefault("temperature", d.Temperature)
	l.v.SetDefault("max_tokens", d.MaxTokens)
	l.v.SetDefault("loading_cutoff", d.LoadingCutoff)
	l.v.SetDefault("top_variables", d.TopVariables)
	l.v.SetDefault("accept_fraction", d.AcceptFraction)
	l.v.SetDefault("format", d.Format)
	l.v.SetDefault("verbose", d.Verbose)

	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return d, err
		}
	} else {
		slog.Info("loaded defaults file", "path", l.v.ConfigFileUsed())
	}

	if err := l.v.Unmarshal(&d); err != nil {
		return d, err
	}
	return d, nil
}
