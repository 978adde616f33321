// Command clbench multiplies two random matrices with a sequential loop nest
// and with each parallel matmul kernel, prints the timings and checks the
// kernel result against the sequential one.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/LynnColeArt/clbench"
)

type options struct {
	cfg        clbench.Config
	kernelPath string
	variants   []string
	verifyEach bool
	gflops     bool
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := options{cfg: clbench.DefaultConfig()}

	cmd := &cobra.Command{
		Use:   "clbench",
		Short: "Benchmark dense float32 matrix multiplication kernels",
		Long: `clbench computes C = A*B for random A (rows x inner) and B (inner x cols)
once sequentially and once with each kernel variant:

  1 naive             one work-item per element
  2 tiled             TSxTS tiles in local memory
  3 tiled-coalesced   tiled with contiguous loads
  4 register-blocked  WPT rows per work-item

The last kernel result is compared with the sequential one.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	if v, _ := clbench.Version(); v != "" {
		cmd.Version = v
	}

	f := cmd.Flags()
	f.IntVar(&opts.cfg.RowA, "rows", clbench.DefaultMatrixSize, "rows of A and C")
	f.IntVar(&opts.cfg.ColA, "inner", clbench.DefaultMatrixSize, "columns of A, rows of B")
	f.IntVar(&opts.cfg.ColB, "cols", clbench.DefaultMatrixSize, "columns of B and C")
	f.IntVar(&opts.cfg.TileSize, "ts", clbench.DefaultTileSize, "tile size (TS)")
	f.IntVar(&opts.cfg.WorkPerThread, "wpt", clbench.DefaultWorkPerThread, "rows per work-item of the register-blocked kernel (WPT)")
	f.Float32Var(&opts.cfg.Tolerance, "tolerance", clbench.DefaultTolerance, "absolute tolerance of the verification")
	f.Uint64Var(&opts.cfg.Seed, "seed", 0, "seed for the input matrices (0 picks one from the clock)")
	f.StringVar(&opts.kernelPath, "kernel", "", "kernel source file to build; its kernels are checked and bound by name to the built-in implementations, their bodies are not executed (default: built-in source)")
	f.StringSliceVar(&opts.variants, "variants", nil, "variants to run, by number or name (default: all)")
	f.BoolVar(&opts.verifyEach, "verify-each", false, "verify every variant, not only the last")
	f.BoolVar(&opts.gflops, "gflops", false, "report GFLOP/s and the fastest variant")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log progress to stderr")
	return cmd
}

func run(ctx context.Context, out io.Writer, opts options) error {
	source := clbench.DefaultKernelSource()
	if opts.kernelPath != "" {
		var err error
		if source, err = clbench.LoadKernelSource(opts.kernelPath); err != nil {
			return err
		}
	}
	variants, err := clbench.ParseVariants(opts.variants)
	if err != nil {
		return err
	}

	bench := &clbench.Benchmark{
		Config:     opts.cfg,
		Source:     source,
		Variants:   variants,
		VerifyEach: opts.verifyEach,
	}
	if opts.verbose {
		bench.Logger = log.New(os.Stderr, "clbench: ", log.Ltime|log.Lmicroseconds)
	}

	report, err := bench.Run(ctx)
	if err != nil {
		return err
	}
	return report.Write(out, clbench.ReportOptions{GFLOPS: opts.gflops})
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("clbench: ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}

	var be *clbench.BuildError
	if errors.As(err, &be) {
		fmt.Printf("Compiler error:\n%s\n", be.Log)
	}
	log.Fatalf("%v", err)
}
