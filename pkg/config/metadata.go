package config

import (
	"strconv"
	"strings"

	"github.com/tunogya/saliency/pkg/data"
)

// DefaultWindows are the window sizes tried for every built-in dataset
var DefaultWindows = []int{501, 751, 1001, 1251, 1501}

// Dataset is the metadata of one dataset
type Dataset struct {
	RelativePath string   `mapstructure:"relative_path" validate:"required"`
	Target       string   `mapstructure:"target" validate:"required"`
	Exogenous    []string `mapstructure:"exogenous" validate:"dive,required"`
	Freq         string   `mapstructure:"freq"`
	TestSize     int      `mapstructure:"test_size" validate:"gte=0"`
	ValidSize    int      `mapstructure:"valid_size" validate:"gte=0"`
	Windows      []int    `mapstructure:"windows" validate:"required,min=1,dive,gt=0"`
}

// Entry converts the metadata to a data catalog entry
func (d Dataset) Entry() data.Entry {
	return data.Entry{
		RelativePath: d.RelativePath,
		Config: data.DatasetConfig{
			Target:    d.Target,
			Exogenous: append([]string(nil), d.Exogenous...),
			Windows:   append([]int(nil), d.Windows...),
			Freq:      d.Freq,
			TestSize:  d.TestSize,
			ValidSize: d.ValidSize,
		},
	}
}

var ettExogenous = []string{"HUFL", "HULL", "MUFL", "MULL", "LUFL", "LULL"}

var weatherExogenous = []string{
	"H2OC (mmol/mol)",
	"PAR (µmol/m²/s)",
	"SWDR (W/m²)",
	"T (degC)",
	"Tdew (degC)",
	"Tlog (degC)",
	"Tpot (K)",
	"VPact (mbar)",
	"VPdef (mbar)",
	"VPmax (mbar)",
	"max. PAR (µmol/m²/s)",
	"max. wv (m/s)",
	"p (mbar)",
	"rain (mm)",
	"raining (s)",
	"rh (%)",
	"rho (g/m**3)",
	"sh (g/kg)",
	"wd (deg)",
	"wv (m/s)",
}

// numbered returns the column names "0" through "last"
func numbered(last int) []string {
	names := make([]string, last+1)
	for i := range names {
		names[i] = strconv.Itoa(i)
	}
	return names
}

// Builtin returns the metadata of the long-horizon benchmark datasets
func Builtin() map[string]Dataset {
	ett := func(name, freq string, split int) Dataset {
		return Dataset{
			RelativePath: "raw/ETT-small/" + name + ".csv",
			Target:       "OT",
			Exogenous:    ettExogenous,
			Freq:         freq,
			TestSize:     split,
			ValidSize:    split,
			Windows:      DefaultWindows,
		}
	}

	return map[string]Dataset{
		"ETTh1": ett("ETTh1", "h", 2881),
		"ETTh2": ett("ETTh2", "h", 2881),
		"ETTm1": ett("ETTm1", "min", 11521),
		"ETTm2": ett("ETTm2", "min", 11521),
		"Weather": {
			RelativePath: "raw/weather/weather.csv",
			Target:       "OT",
			Exogenous:    weatherExogenous,
			Freq:         "10min",
			TestSize:     10540,
			ValidSize:    5271,
			Windows:      DefaultWindows,
		},
		"TrafficL": {
			RelativePath: "raw/traffic/traffic.csv",
			Target:       "OT",
			Exogenous:    numbered(860),
			Freq:         "h",
			TestSize:     3509,
			ValidSize:    1757,
			Windows:      DefaultWindows,
		},
		"ECL": {
			RelativePath: "raw/electricity/electricity.csv",
			Target:       "OT",
			Exogenous:    numbered(319),
			Freq:         "15min",
			TestSize:     5261,
			ValidSize:    2633,
			Windows:      DefaultWindows,
		},
	}
}

// lookup finds id in m, falling back to a case-insensitive match since viper
// lower-cases map keys read from files and the environment
func lookup(m map[string]Dataset, id string) (Dataset, bool) {
	if d, ok := m[id]; ok {
		return d, true
	}
	for k, d := range m {
		if strings.EqualFold(k, id) {
			return d, true
		}
	}
	return Dataset{}, false
}
