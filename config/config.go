// Package config is for app wide settings that are unmarshalled
// from Viper (see: /cmd)
package config

import (
	"log"

	"github.com/spf13/viper"
)

// GraphConfig controls how the de Bruijn sub-graph of valid k-mers is
// built: its word length and the repeat/motif filters applied before
// dead-end and reachability pruning.
type GraphConfig struct {
	// Length is the k-mer word length of the graph.
	Length int `mapstructure:"length"`

	// MaxTandemRepeatLen rejects k-mers containing a tandem repeat of
	// period <= this many bases; 0 disables the filter.
	MaxTandemRepeatLen int `mapstructure:"tandem"`

	// MaxInvertedRepeatLen rejects k-mers containing a palindromic
	// (self-reverse-complementary) repeat of this length; 0 disables it.
	MaxInvertedRepeatLen int `mapstructure:"invrep"`

	// ExcludeMotifs is a list of short motifs (e.g. restriction sites)
	// no valid k-mer may contain.
	ExcludeMotifs []string `mapstructure:"exclude"`

	// SourceMotifs marks the graph's terminal/framing k-mers.
	SourceMotifs []string `mapstructure:"source"`

	// KeepDegenerates disables the purine/pyrimidine tie-break edge
	// elimination pass, leaving multi-edges between k-mer pairs.
	KeepDegenerates bool `mapstructure:"keep-degenerate"`
}

// ControlConfig configures the backtracking control-word planner.
type ControlConfig struct {
	// Count is the number of control words to plan.
	Count int `mapstructure:"controls"`

	// MaxSteps bounds the backward reachability search used to accept
	// or reject a candidate control word.
	MaxSteps int `mapstructure:"control-max-steps"`
}

// FramingConfig toggles the transducer's start/end load states.
type FramingConfig struct {
	NoStart bool `mapstructure:"no-start"`
	NoEnd   bool `mapstructure:"no-end"`
}

// MachineConfig controls persistence and composition of the assembled
// transducer.
type MachineConfig struct {
	LoadPath    string `mapstructure:"load-machine"`
	SavePath    string `mapstructure:"save-machine"`
	ComposePath string `mapstructure:"compose-machine"`
}

// MutatorConfig carries the default error-model parameters used when no
// trained model is loaded, and the Baum-Welch training knobs.
type MutatorConfig struct {
	PDelOpen      float64   `mapstructure:"p-del-open"`
	PDelExtend    float64   `mapstructure:"p-del-extend"`
	PTanDup       float64   `mapstructure:"p-tandup"`
	PTransition   float64   `mapstructure:"p-transition"`
	PTransversion float64   `mapstructure:"p-transversion"`
	PLen          []float64 `mapstructure:"p-len"`
	Local         bool      `mapstructure:"local"`

	TrainMaxIter int     `mapstructure:"train-max-iter"`
	TrainTol     float64 `mapstructure:"train-tol"`

	ParamsPath string `mapstructure:"params"`
}

// IOConfig names the input/output paths and format toggles for the six
// encode/decode CLI modes.
type IOConfig struct {
	EncodeFile   string `mapstructure:"encode-file"`
	DecodeFile   string `mapstructure:"decode-file"`
	EncodeString string `mapstructure:"encode-string"`
	DecodeString string `mapstructure:"decode-string"`
	EncodeBits   string `mapstructure:"encode-bits"`
	DecodeBits   string `mapstructure:"decode-bits"`
	DecodeViterbi string `mapstructure:"decode-viterbi"`

	FastaCols int `mapstructure:"fasta-cols"`

	Raw       bool `mapstructure:"raw"`
	Dot       bool `mapstructure:"dot"`
	Rate      bool `mapstructure:"rate"`
	TokenInfo bool `mapstructure:"token-info"`
}

// LogConfig configures the CLI's verbose/log/nocolor flag surface.
type LogConfig struct {
	Verbose bool   `mapstructure:"verbose"`
	LogFile string `mapstructure:"log"`
	NoColor bool   `mapstructure:"nocolor"`
}

// Config is the root-level settings struct and is a mix of settings
// available in settings.yaml and those available from the command line.
type Config struct {
	Graph   GraphConfig
	Control ControlConfig
	Framing FramingConfig
	Machine MachineConfig
	Mutator MutatorConfig
	IO      IOConfig
	Log     LogConfig
}

// DefaultConfig returns the settings the CLI falls back to when a flag
// and settings.yaml both leave a field unset.
func DefaultConfig() Config {
	return Config{
		Graph: GraphConfig{
			Length: 12,
		},
		Control: ControlConfig{
			Count:    2,
			MaxSteps: 64,
		},
		Mutator: MutatorConfig{
			PDelOpen:      0.01,
			PDelExtend:    0.3,
			PTanDup:       0.01,
			PTransition:   0.02,
			PTransversion: 0.01,
			PLen:          []float64{0.5, 0.3, 0.15, 0.05},
			TrainMaxIter:  100,
			TrainTol:      1e-3,
		},
		IO: IOConfig{
			FastaCols: 50,
		},
	}
}

// NewConfig returns a new Config struct populated by Viper settings
// (either from the local settings.yaml) and/or command line arguments,
// layered on top of DefaultConfig's fallbacks.
func NewConfig() Config {
	c := DefaultConfig()
	if err := viper.Unmarshal(&c); err != nil {
		log.Fatalf("unable to decode into struct, %v", err)
	}
	return c
}
