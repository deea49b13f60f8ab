// Package config loads the sensor calibration once at startup.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/sweeney/firesport-timer/internal/pulse"
)

// Default calibration used when a key is missing.
const (
	DefaultFlowK = pulse.DefaultFlowK
	DefaultFlowQ = pulse.DefaultFlowQ
	DefaultRPMK  = pulse.DefaultRPMK
)

// EnvPrefix is the prefix for environment overrides, e.g. FIRESPORT_FLOW_K.
const EnvPrefix = "FIRESPORT"

// Calibration holds the per-sensor linear coefficients.
// It is immutable after Load returns.
type Calibration struct {
	Flow pulse.FlowCalibration
	RPM  pulse.RPMCalibration
}

// Default returns the documented default calibration.
func Default() Calibration {
	return Calibration{
		Flow: pulse.DefaultFlow(),
		RPM:  pulse.DefaultRPM(),
	}
}

var defaults = []struct {
	key string
	val float64
}{
	{"flow.k", DefaultFlowK},
	{"flow.q", DefaultFlowQ},
	{"rpm.k", DefaultRPMK},
}

// Load reads the calibration file at path (JSON, YAML or TOML by extension)
// and applies environment overrides. A missing file or missing keys fall
// back to defaults with a warning; a malformed file is an error.
func Load(path string, log *zap.Logger) (Calibration, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config")

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return Calibration{}, fmt.Errorf("read calibration %s: %w", path, err)
			}
			log.Warn("calibration file not found, using defaults", zap.String("path", path))
		}
	}

	for _, d := range defaults {
		if !v.IsSet(d.key) {
			log.Warn("calibration key missing, using default", zap.String("key", d.key), zap.Float64("default", d.val))
			v.Set(d.key, d.val)
		}
	}

	cal := Calibration{
		Flow: pulse.FlowCalibration{K: v.GetFloat64("flow.k"), Q: v.GetFloat64("flow.q")},
		RPM:  pulse.RPMCalibration{K: v.GetFloat64("rpm.k")},
	}
	if cal.RPM.K <= 0 {
		return Calibration{}, fmt.Errorf("rpm.k must be positive, got %v", cal.RPM.K)
	}
	return cal, nil
}
