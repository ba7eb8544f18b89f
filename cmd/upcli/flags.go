package main

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// mustBindPFlag attempts to bind a specific key to a pflag (as used by cobra) and panics
// if the binding fails with a non-nil error.
func mustBindPFlag(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic("failed to bind pflag: " + err.Error())
	}
}

func mustBindEnv(v *viper.Viper, input ...string) {
	if err := v.BindEnv(input...); err != nil {
		panic("failed to bind env key: " + err.Error())
	}
}

// bind registers flag name under the same viper key and the UPWORD_ prefixed
// environment variable.
func bind(v *viper.Viper, flags *pflag.FlagSet, name string) {
	mustBindPFlag(v, name, flags.Lookup(name))
	mustBindEnv(v, name)
}
