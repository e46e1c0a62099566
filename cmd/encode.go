package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/ihh/dnastore/internal/bio"
	"github.com/ihh/dnastore/internal/codec"
	"github.com/ihh/dnastore/internal/xlog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	encodeLoadMachine    string
	encodeComposeMachine string
	encodeFile           string
	encodeString         string
	encodeBits           string
	encodeRaw            bool
	encodeFastaCols      int
)

// encodeCmd encodes binary input through the assembled (or loaded)
// transducer, emitting a DNA sequence.
var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Encode a file, string, or bit string into DNA",
	Run: func(cmd *cobra.Command, args []string) {
		runEncode()
	},
}

func init() {
	rootCmd.AddCommand(encodeCmd)
	addBuildFlags(encodeCmd)

	encodeCmd.Flags().StringVar(&encodeLoadMachine, "load-machine", "", "load a previously saved machine instead of building one")
	encodeCmd.Flags().StringVar(&encodeComposeMachine, "compose-machine", "", "compose the resolved machine with a second, inner machine loaded from this path")
	encodeCmd.Flags().StringVar(&encodeFile, "encode-file", "", "path to a binary file to encode")
	encodeCmd.Flags().StringVar(&encodeString, "encode-string", "", "literal text to encode")
	encodeCmd.Flags().StringVar(&encodeBits, "encode-bits", "", "a literal string of '0'/'1' characters to encode")
	encodeCmd.Flags().BoolVar(&encodeRaw, "raw", false, "print the raw DNA sequence with no FASTA header/wrapping")
	encodeCmd.Flags().IntVar(&encodeFastaCols, "fasta-cols", bio.DefaultFastaCols, "FASTA line-wrap width")

	for _, name := range []string{"load-machine", "compose-machine", "encode-file", "encode-string", "encode-bits", "raw", "fasta-cols"} {
		viper.BindPFlag(name, encodeCmd.Flags().Lookup(name))
	}
}

// addBuildFlags registers the build-on-the-fly flags on cmd, shared by
// encode and decode so either can build a fresh machine without loading
// one from disk.
func addBuildFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&buildLength, "length", 12, "k-mer word length of the graph")
	cmd.Flags().IntVar(&buildTandem, "tandem", -1, "max tandem repeat length rejected (-1 = length/2 default)")
	cmd.Flags().IntVar(&buildInvRep, "invrep", -1, "max local inverted repeat length rejected (-1 = length/2 default)")
	cmd.Flags().StringSliceVar(&buildExclude, "exclude", nil, "motif(s) to exclude from the graph (repeatable)")
	cmd.Flags().StringSliceVar(&buildSource, "source", nil, "source/framing motif(s) (repeatable)")
	cmd.Flags().IntVar(&buildControls, "controls", 2, "number of control words to plan")
	cmd.Flags().BoolVar(&buildNoStart, "no-start", false, "disable start-framing load states")
	cmd.Flags().BoolVar(&buildNoEnd, "no-end", false, "disable end-framing terminal state")

	for _, name := range []string{"length", "tandem", "invrep", "exclude", "source", "controls", "no-start", "no-end"} {
		viper.BindPFlag(name, cmd.Flags().Lookup(name))
	}
}

func runEncode() {
	m, err := resolveMachine(encodeLoadMachine, encodeComposeMachine)
	xlog.FatalErr(err, "resolving machine")

	var out strings.Builder
	enc := codec.NewEncoder(m, &out)

	switch {
	case encodeFile != "":
		f, err := os.Open(encodeFile)
		xlog.FatalErr(err, "opening %s", encodeFile)
		defer f.Close()
		xlog.FatalErr(enc.EncodeStream(bufio.NewReader(f)), "encoding %s", encodeFile)
	case encodeString != "":
		xlog.FatalErr(enc.EncodeStream(strings.NewReader(encodeString)), "encoding string")
	case encodeBits != "":
		for _, c := range encodeBits {
			bit := 0
			if c == '1' {
				bit = 1
			} else if c != '0' {
				xlog.Fatal("encode-bits: invalid character %q, expected '0' or '1'", c)
			}
			xlog.FatalErr(enc.EncodeBit(bit), "encoding bit")
		}
	default:
		xlog.Fatal("one of --encode-file, --encode-string, or --encode-bits is required")
	}
	xlog.FatalErr(enc.Close(), "closing encoder")

	if encodeRaw {
		fmt.Println(out.String())
		return
	}
	xlog.FatalErr(bio.WriteSeqs(os.Stdout, []bio.Seq{{Name: "SEQ", Seq: out.String()}}, encodeFastaCols), "writing FASTA output")
}
