package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ihh/dnastore/internal/control"
	"github.com/ihh/dnastore/internal/graph"
	"github.com/ihh/dnastore/internal/kmer"
	"github.com/ihh/dnastore/internal/pattern"
	"github.com/ihh/dnastore/internal/transducer"
	"github.com/ihh/dnastore/internal/xlog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	buildLength       int
	buildTandem       int
	buildInvRep       int
	buildExclude      []string
	buildSource       []string
	buildControls     int
	buildControlSteps int
	buildNoStart      bool
	buildNoEnd        bool
	buildSaveMachine  string
	buildDot          bool
	buildRate         bool
	buildTokenInfo    bool
)

// buildCmd represents the build command: construct the de Bruijn
// sub-graph of valid k-mers, plan control words, and assemble the
// resulting finite-state transducer.
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a transducer from a de Bruijn graph of valid k-mers",
	Run: func(cmd *cobra.Command, args []string) {
		runBuild()
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().IntVar(&buildLength, "length", 12, "k-mer word length of the graph")
	buildCmd.Flags().IntVar(&buildTandem, "tandem", -1, "max tandem repeat length rejected (-1 = length/2 default)")
	buildCmd.Flags().IntVar(&buildInvRep, "invrep", -1, "max local inverted repeat length rejected (-1 = length/2 default)")
	buildCmd.Flags().StringSliceVar(&buildExclude, "exclude", nil, "motif(s) to exclude from the graph (repeatable)")
	buildCmd.Flags().StringSliceVar(&buildSource, "source", nil, "source/framing motif(s) (repeatable)")
	buildCmd.Flags().IntVar(&buildControls, "controls", 2, "number of control words to plan")
	buildCmd.Flags().IntVar(&buildControlSteps, "control-max-steps", control.DefaultMaxSteps, "max backward-reachability steps accepted for a control word")
	buildCmd.Flags().BoolVar(&buildNoStart, "no-start", false, "disable start-framing load states")
	buildCmd.Flags().BoolVar(&buildNoEnd, "no-end", false, "disable end-framing terminal state")
	buildCmd.Flags().StringVar(&buildSaveMachine, "save-machine", "", "write the assembled machine as JSON to this path")
	buildCmd.Flags().BoolVar(&buildDot, "dot", false, "write the assembled machine as Graphviz dot to stdout")
	buildCmd.Flags().BoolVar(&buildRate, "rate", false, "print the machine's expected bases emitted per bit consumed")
	buildCmd.Flags().BoolVar(&buildTokenInfo, "token-info", false, "print a human-readable state/transition table to stdout")

	for _, name := range []string{"length", "tandem", "invrep", "exclude", "source", "controls", "control-max-steps", "no-start", "no-end", "save-machine", "dot", "rate", "token-info"} {
		viper.BindPFlag(name, buildCmd.Flags().Lookup(name))
	}
}

// buildMachine runs the build pipeline (graph -> control words ->
// transducer assembly) shared by buildCmd and the encode/decode
// commands' --build-on-the-fly path, returning the assembled machine.
func buildMachine() (*transducer.Machine, error) {
	length := kmer.Pos(buildLength)
	filters := pattern.DefaultFilters(length)
	if buildTandem >= 0 {
		filters.MaxTandemRepeatLen = kmer.Pos(buildTandem)
	}
	if buildInvRep >= 0 {
		filters.MaxInvertedRepeatLen = kmer.Pos(buildInvRep)
	}
	for _, m := range buildExclude {
		kl, err := pattern.ParseMotif(m)
		if err != nil {
			return nil, err
		}
		filters.ExcludedMotif = append(filters.ExcludedMotif, kl)
		filters.ExcludedMotifRevComp = append(filters.ExcludedMotifRevComp, kmer.KmerLen{
			Kmer: kmer.RevComp(kl.Kmer, kl.Len), Len: kl.Len,
		})
	}

	var sourceMotifs []kmer.KmerLen
	for _, m := range buildSource {
		kl, err := pattern.ParseMotif(m)
		if err != nil {
			return nil, err
		}
		sourceMotifs = append(sourceMotifs, kl)
	}

	b := graph.NewBuilder(length)
	b.Filters = filters
	b.SourceMotif = sourceMotifs
	b.Build()
	xlog.At(2, "graph built: %d valid k-mers of %d candidates", countValid(b), len(b.Valid))

	var controls []control.ControlWord
	if buildControls > 0 {
		cw, err := control.Plan(b, buildControls, buildControlSteps)
		if err != nil {
			return nil, fmt.Errorf("planning control words: %w", err)
		}
		controls = cw
		xlog.At(2, "planned %d control words", len(controls))
	}

	opts := transducer.Options{
		StartFraming: !buildNoStart,
		EndFraming:   !buildNoEnd,
		SourceMotif:  sourceMotifs,
	}
	m, err := transducer.Assemble(b, controls, opts)
	if err != nil {
		return nil, fmt.Errorf("assembling transducer: %w", err)
	}
	xlog.At(2, "assembled machine: %d states", m.NStates())
	return m, nil
}

func countValid(b *graph.Builder) int {
	n := 0
	for _, v := range b.Valid {
		if v {
			n++
		}
	}
	return n
}

func runBuild() {
	m, err := buildMachine()
	xlog.FatalErr(err, "build failed")

	if buildSaveMachine != "" {
		data, err := json.MarshalIndent(m, "", "  ")
		xlog.FatalErr(err, "marshaling machine")
		xlog.FatalErr(os.WriteFile(buildSaveMachine, data, 0644), "writing %s", buildSaveMachine)
	}
	if buildDot {
		xlog.FatalErr(m.WriteDot(os.Stdout), "writing dot output")
	}
	if buildTokenInfo {
		xlog.FatalErr(m.WriteText(os.Stdout), "writing token info")
	}
	if buildRate {
		fmt.Printf("%.4f bases/bit\n", m.ExpectedBasesPerBit())
	}
	if buildSaveMachine == "" && !buildDot && !buildTokenInfo && !buildRate {
		xlog.FatalErr(m.WriteText(os.Stdout), "writing token info")
	}
}
