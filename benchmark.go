package clbench

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"time"
)

// Result is the timing of one multiplication strategy.
type Result struct {
	Name    string
	Variant Variant // zero for the sequential reference
	Elapsed time.Duration

	// Check is the comparison of this variant's output against the
	// reference. It is only filled when every variant is verified.
	Check *Verification
}

// GFLOPS returns the throughput of the run for a problem of flops
// floating-point operations.
func (r Result) GFLOPS(flops float64) float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return flops / r.Elapsed.Seconds() / 1e9
}

// Report collects the results of a benchmark run.
type Report struct {
	Config Config
	Seed   uint64
	Device string

	Sequential Result
	Variants   []Result

	// Verification compares the reference against the output of the last
	// variant run.
	Verification Verification
}

// Benchmark multiplies two random matrices sequentially and then with each
// selected kernel variant, one at a time, and verifies the last kernel
// result against the sequential one.
type Benchmark struct {
	Config Config
	Source string

	// Variants to run, in order. Empty runs all four.
	Variants []Variant

	// VerifyEach checks every variant's output, not only the last.
	VerifyEach bool

	Device *Device
	Logger *log.Logger
}

// NewBenchmark returns a benchmark of every variant with the built-in
// kernel source.
func NewBenchmark(cfg Config) *Benchmark {
	return &Benchmark{Config: cfg, Source: DefaultKernelSource()}
}

func (b *Benchmark) logf(format string, args ...any) {
	if b.Logger != nil {
		b.Logger.Printf(format, args...)
	}
}

// Run executes the benchmark. ctx is checked between variants; a running
// dispatch is never interrupted.
func (b *Benchmark) Run(ctx context.Context) (*Report, error) {
	cfg := b.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	variants := b.Variants
	if len(variants) == 0 {
		variants = Variants()
	}
	for _, v := range variants {
		if !v.Valid() {
			return nil, NewInvalidArgError("Benchmark", fmt.Sprintf("invalid variant %d", int(v)))
		}
	}

	dev := b.Device
	if dev == nil {
		var err error
		if dev, err = DefaultDevice(); err != nil {
			return nil, deviceCall("GetDeviceIDs", err)
		}
	}
	b.logf("device: %s, %d compute units", dev, dev.ComputeUnits)

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed>>1|1))
	a := RandomMatrix(cfg.RowA, cfg.ColA, rng)
	bm := RandomMatrix(cfg.ColA, cfg.ColB, rng)
	cSeq := NewMatrix(cfg.RowA, cfg.ColB)
	cPar := NewMatrix(cfg.RowA, cfg.ColB)

	report := &Report{Config: cfg, Seed: seed, Device: dev.Name}

	b.logf("running %s on %dx%d * %dx%d", SequentialName, cfg.RowA, cfg.ColA, cfg.ColA, cfg.ColB)
	elapsed, err := Sequential(a, bm, cSeq)
	if err != nil {
		return nil, err
	}
	report.Sequential = Result{Name: SequentialName, Elapsed: elapsed}

	orch := &Orchestrator{Config: cfg, Source: b.Source, Device: dev, Logger: b.Logger}
	for _, v := range variants {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		clear(cPar.Data)

		b.logf("running %s (%s)", v.EntryPoint(), v)
		elapsed, err := orch.Run(v, a, bm, cPar)
		if err != nil {
			return report, fmt.Errorf("%s: %w", v.EntryPoint(), err)
		}
		res := Result{Name: v.EntryPoint(), Variant: v, Elapsed: elapsed}
		if b.VerifyEach {
			check := Verify(cSeq, cPar, cfg.Tolerance)
			res.Check = &check
		}
		report.Variants = append(report.Variants, res)
	}

	report.Verification = Verify(cSeq, cPar, cfg.Tolerance)
	return report, nil
}
