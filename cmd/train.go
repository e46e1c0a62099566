package cmd

import (
	"errors"
	"os"

	"github.com/ihh/dnastore/internal/align"
	"github.com/ihh/dnastore/internal/bio"
	"github.com/ihh/dnastore/internal/kmer"
	"github.com/ihh/dnastore/internal/mutator"
	"github.com/ihh/dnastore/internal/viterbi"
	"github.com/ihh/dnastore/internal/xlog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	trainStockholm string
	trainOut       string
	trainMaxIter   int
	trainTol       float64
	trainMaxDupLen int
)

// trainCmd fits a mutator.Params error model from a database of guide
// alignments via Baum-Welch, the CLI surface for internal/viterbi's EM
// trainer.
var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Fit a mutation model from a Stockholm database of reference/observed guide alignments",
	Run: func(cmd *cobra.Command, args []string) {
		runTrain()
	},
}

func init() {
	rootCmd.AddCommand(trainCmd)

	trainCmd.Flags().StringVar(&trainStockholm, "alignments", "", "path to a Stockholm alignment database (required)")
	trainCmd.Flags().StringVar(&trainOut, "params", "", "write the fitted mutation model as JSON to this path (stdout if empty)")
	trainCmd.Flags().IntVar(&trainMaxIter, "train-max-iter", 100, "maximum Baum-Welch iterations")
	trainCmd.Flags().Float64Var(&trainTol, "train-tol", 1e-3, "stop when the fractional log-likelihood improvement drops below this")
	trainCmd.Flags().IntVar(&trainMaxDupLen, "max-duplication-len", 4, "maximum tandem-duplication length modeled")
	trainCmd.MarkFlagRequired("alignments")

	for _, name := range []string{"alignments", "params", "train-max-iter", "train-tol", "max-duplication-len"} {
		viper.BindPFlag(name, trainCmd.Flags().Lookup(name))
	}
}

func runTrain() {
	f, err := os.Open(trainStockholm)
	xlog.FatalErr(err, "opening %s", trainStockholm)
	defer f.Close()

	records, err := bio.ReadStockholmDatabase(f)
	xlog.FatalErr(err, "reading Stockholm database %s", trainStockholm)
	xlog.At(2, "loaded %d guide alignments", len(records))

	pairs := make([]viterbi.TrainingPair, 0, len(records))
	for _, rec := range records {
		pair, err := stockholmToPair(rec)
		if err != nil {
			xlog.Warn("skipping record: %v", err)
			continue
		}
		pairs = append(pairs, pair)
	}
	if len(pairs) == 0 {
		xlog.Fatal("no usable two-row guide alignments found in %s", trainStockholm)
	}

	res := viterbi.BaumWelch(pairs, mutator.DefaultParams(trainMaxDupLen), trainMaxIter, trainTol)
	xlog.At(1, "Baum-Welch finished after %d iterations (converged=%v), final log-likelihood plus log-prior %.4f",
		res.Iterations, res.Converged, res.LogLik[len(res.LogLik)-1])

	data, err := res.Params.ToJSON()
	xlog.FatalErr(err, "marshaling fitted parameters")

	if trainOut == "" {
		os.Stdout.Write(data)
		os.Stdout.Write([]byte("\n"))
		return
	}
	xlog.FatalErr(os.WriteFile(trainOut, data, 0644), "writing %s", trainOut)
}

// stockholmToPair converts a two-row Stockholm record into a
// viterbi.TrainingPair, taking the first row as the reference and the
// second as the noisy observation, banded by their own guide alignment.
func stockholmToPair(rec *bio.Stockholm) (viterbi.TrainingPair, error) {
	if rec.Rows() != 2 {
		return viterbi.TrainingPair{}, errTwoRowsRequired
	}
	a := rec.Alignment()
	ref, err := basesFromResidues(a.Ungapped[0].Residues)
	if err != nil {
		return viterbi.TrainingPair{}, err
	}
	obs, err := basesFromResidues(a.Ungapped[1].Residues)
	if err != nil {
		return viterbi.TrainingPair{}, err
	}
	return viterbi.TrainingPair{
		Ref:   ref,
		Obs:   obs,
		Guide: align.NewGuideAlignmentEnvelope(a, maxGuideDistance),
	}, nil
}

const maxGuideDistance = 8

var errTwoRowsRequired = errors.New("expected exactly two rows (reference, observed)")

func basesFromResidues(s string) ([]kmer.Base, error) {
	out := make([]kmer.Base, 0, len(s))
	for i := 0; i < len(s); i++ {
		b, err := kmer.CharToBase(s[i])
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}
