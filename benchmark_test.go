package clbench

import (
	"bytes"
	"context"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.RowA, cfg.ColA, cfg.ColB = 37, 29, 41
	cfg.Seed = 42
	return cfg
}

func TestBenchmarkRun(t *testing.T) {
	var logs bytes.Buffer
	bench := NewBenchmark(smallConfig())
	bench.VerifyEach = true
	bench.Logger = log.New(&logs, "", 0)

	report, err := bench.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, SequentialName, report.Sequential.Name)
	assert.Equal(t, uint64(42), report.Seed)
	require.Len(t, report.Variants, 4)
	for i, res := range report.Variants {
		assert.Equal(t, Variant(i+1), res.Variant)
		assert.Equal(t, res.Variant.EntryPoint(), res.Name)
		require.NotNil(t, res.Check)
		assert.True(t, res.Check.Match, "%s: %s", res.Name, res.Check)
	}
	assert.True(t, report.Verification.Match)
	dev, err := DefaultDevice()
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "device: "+dev.String()+", ")
	assert.Contains(t, logs.String(), "running vec_mul_4 (register-blocked)")
	assert.Contains(t, logs.String(), "note: kernel 'vec_mul_4' runs the built-in implementation")
	assert.Contains(t, logs.String(), `"-D TS=16 -D WPT=8"`)
}

func TestBenchmarkSubset(t *testing.T) {
	bench := NewBenchmark(smallConfig())
	bench.Variants = []Variant{TiledCoalesced, Naive}

	report, err := bench.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Variants, 2)
	assert.Equal(t, "vec_mul_3", report.Variants[0].Name)
	assert.Equal(t, "vec_mul_1", report.Variants[1].Name)
	assert.Nil(t, report.Variants[0].Check)
	assert.True(t, report.Verification.Match)
}

func TestBenchmarkSeedDeterminism(t *testing.T) {
	cfg := smallConfig()
	cfg.RowA, cfg.ColA, cfg.ColB = 8, 8, 8

	run := func() *Report {
		bench := NewBenchmark(cfg)
		bench.Variants = []Variant{Naive}
		r, err := bench.Run(context.Background())
		require.NoError(t, err)
		return r
	}
	assert.Equal(t, run().Seed, run().Seed)

	cfg.Seed = 0
	r := run()
	assert.NotZero(t, r.Seed, "a zero seed should be replaced")
}

func TestBenchmarkErrors(t *testing.T) {
	cfg := smallConfig()
	cfg.WorkPerThread = 5
	_, err := NewBenchmark(cfg).Run(context.Background())
	assert.True(t, IsInvalidArgError(err), "got %v", err)

	bench := NewBenchmark(smallConfig())
	bench.Variants = []Variant{7}
	_, err = bench.Run(context.Background())
	assert.True(t, IsInvalidArgError(err), "got %v", err)

	bench = NewBenchmark(smallConfig())
	bench.Source = "__kernel void vec_mul_1("
	_, err = bench.Run(context.Background())
	assert.True(t, IsBuildError(err), "got %v", err)
	assert.True(t, strings.HasPrefix(err.Error(), "vec_mul_1: "), "got %v", err)
}

func TestBenchmarkCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := NewBenchmark(smallConfig()).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Equal(t, SequentialName, report.Sequential.Name)
	assert.Empty(t, report.Variants)
}

func TestReportWrite(t *testing.T) {
	report := &Report{
		Config:     Config{RowA: 1000, ColA: 1000, ColB: 1000},
		Sequential: Result{Name: SequentialName, Elapsed: 2 * time.Second},
		Variants: []Result{
			{Name: "vec_mul_1", Variant: Naive, Elapsed: time.Second},
			{Name: "vec_mul_2", Variant: Tiled, Elapsed: 250 * time.Millisecond},
		},
		Verification: Verification{Match: true},
	}

	var buf bytes.Buffer
	require.NoError(t, report.Write(&buf, ReportOptions{}))
	want := "Sequential version...\n" +
		"vec_mul_seq\tElapsed time: 2.000000 sec\n" +
		"\nOpenCL version...\n" +
		"vec_mul_1\tElapsed time: 1.000000 sec\n" +
		"vec_mul_2\tElapsed time: 0.250000 sec\n" +
		"\nSequential version == OpenCL version\n"
	assert.Equal(t, want, buf.String())

	buf.Reset()
	require.NoError(t, report.Write(&buf, ReportOptions{GFLOPS: true}))
	out := buf.String()
	assert.Contains(t, out, "vec_mul_2\tElapsed time: 0.250000 sec\t8.00 GFLOP/s\n")
	assert.Contains(t, out, "2,000,000,000 floating-point operations per run\n")
	assert.Contains(t, out, "fastest: vec_mul_2 (tiled), 8.0x sequential\n")

	report.Verification = Verification{Index: 12, Expected: 3, Actual: 4}
	buf.Reset()
	require.NoError(t, report.Write(&buf, ReportOptions{}))
	assert.True(t, strings.HasSuffix(buf.String(), "12\t3.000000\t4.000000\n\nSequential version != OpenCL version\n"), buf.String())
}

func TestReportFastest(t *testing.T) {
	_, ok := (&Report{}).Fastest()
	assert.False(t, ok)

	r := &Report{Variants: []Result{
		{Name: "vec_mul_1", Elapsed: 3 * time.Millisecond},
		{Name: "vec_mul_4", Elapsed: time.Millisecond},
		{Name: "vec_mul_2", Elapsed: 2 * time.Millisecond},
	}}
	best, ok := r.Fastest()
	assert.True(t, ok)
	assert.Equal(t, "vec_mul_4", best.Name)
}
