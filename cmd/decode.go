package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/ihh/dnastore/internal/bio"
	"github.com/ihh/dnastore/internal/codec"
	"github.com/ihh/dnastore/internal/kmer"
	"github.com/ihh/dnastore/internal/mutator"
	"github.com/ihh/dnastore/internal/transducer"
	"github.com/ihh/dnastore/internal/viterbi"
	"github.com/ihh/dnastore/internal/xlog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	decodeLoadMachine    string
	decodeComposeMachine string
	decodeFile           string
	decodeString         string
	decodeBits           string
	decodeViterbi        string
	decodeParams         string
)

// decodeCmd decodes a DNA sequence back through the transducer,
// recovering the original bits. With --decode-viterbi it instead
// error-corrects a noisy DNA read using internal/viterbi.
var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Decode a DNA sequence (exactly, or error-corrected via Viterbi) back to bits",
	Run: func(cmd *cobra.Command, args []string) {
		runDecode()
	},
}

func init() {
	rootCmd.AddCommand(decodeCmd)
	addBuildFlags(decodeCmd)

	decodeCmd.Flags().StringVar(&decodeLoadMachine, "load-machine", "", "load a previously saved machine instead of building one")
	decodeCmd.Flags().StringVar(&decodeComposeMachine, "compose-machine", "", "compose the resolved machine with a second, inner machine loaded from this path")
	decodeCmd.Flags().StringVar(&decodeFile, "decode-file", "", "path to a FASTA file with the DNA sequence to decode")
	decodeCmd.Flags().StringVar(&decodeString, "decode-string", "", "literal DNA sequence to decode")
	decodeCmd.Flags().StringVar(&decodeBits, "decode-bits", "", "alias of --decode-string, named for symmetry with --encode-bits")
	decodeCmd.Flags().StringVar(&decodeViterbi, "decode-viterbi", "", "literal noisy DNA sequence to error-correct via Viterbi decoding")
	decodeCmd.Flags().StringVar(&decodeParams, "params", "", "path to a trained mutation-model JSON file (used only with --decode-viterbi)")

	for _, name := range []string{"load-machine", "compose-machine", "decode-file", "decode-string", "decode-bits", "decode-viterbi", "params"} {
		viper.BindPFlag(name, decodeCmd.Flags().Lookup(name))
	}
}

func runDecode() {
	m, err := resolveMachine(decodeLoadMachine, decodeComposeMachine)
	xlog.FatalErr(err, "resolving machine")

	if decodeViterbi != "" {
		runDecodeViterbi(m, decodeViterbi)
		return
	}

	seq, err := readDecodeInput()
	xlog.FatalErr(err, "reading decode input")

	var out strings.Builder
	dec := codec.NewDecoder(m, func(s string) error {
		out.WriteString(s)
		return nil
	})
	xlog.FatalErr(dec.DecodeString(seq), "decoding sequence")
	dec.Close()
	fmt.Println(out.String())
}

func readDecodeInput() (string, error) {
	switch {
	case decodeFile != "":
		f, err := os.Open(decodeFile)
		if err != nil {
			return "", err
		}
		defer f.Close()
		seqs, err := bio.ReadSeqs(f)
		if err != nil {
			return "", err
		}
		if len(seqs) == 0 {
			return "", fmt.Errorf("no sequences found in %s", decodeFile)
		}
		return seqs[0].Seq, nil
	case decodeString != "":
		return decodeString, nil
	case decodeBits != "":
		return decodeBits, nil
	default:
		return "", fmt.Errorf("one of --decode-file, --decode-string, or --decode-bits is required")
	}
}

func runDecodeViterbi(m *transducer.Machine, seq string) {
	params := mutator.DefaultParams(4)
	if decodeParams != "" {
		data, err := os.ReadFile(decodeParams)
		xlog.FatalErr(err, "reading %s", decodeParams)
		params, err = mutator.ParamsFromJSON(data)
		xlog.FatalErr(err, "parsing %s", decodeParams)
	}
	scores := mutator.NewScores(params)

	obs := make([]kmer.Base, 0, len(seq))
	for i := 0; i < len(seq); i++ {
		b, err := kmer.CharToBase(seq[i])
		xlog.FatalErr(err, "decode-viterbi: invalid base %q at position %d", seq[i], i)
		obs = append(obs, b)
	}

	mx := viterbi.NewMatrix(m, scores, obs)
	mx.Fill()
	score, key, found := mx.BestScore()
	if !found {
		xlog.Fatal("decode-viterbi: no path reached the end of the observed sequence")
	}
	bits, err := mx.Traceback(len(obs), key)
	xlog.FatalErr(err, "decode-viterbi: traceback")

	xlog.At(2, "decode-viterbi: best path log-likelihood %.4f", score)
	fmt.Println(bits)
}
