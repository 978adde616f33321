package clbench

import (
	"bytes"
	"io"

	"github.com/samber/lo"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ReportOptions selects optional report columns.
type ReportOptions struct {
	// GFLOPS appends the throughput of each run and names the fastest
	// variant.
	GFLOPS bool
}

// Fastest returns the variant with the shortest elapsed time.
func (r *Report) Fastest() (Result, bool) {
	if len(r.Variants) == 0 {
		return Result{}, false
	}
	return lo.MinBy(r.Variants, func(a, b Result) bool {
		return a.Elapsed < b.Elapsed
	}), true
}

// Write writes the report in the benchmark's text format: the reference
// timing, one timing line per variant, the first mismatching element if
// any, and the verdict.
func (r *Report) Write(w io.Writer, opts ReportOptions) error {
	p := message.NewPrinter(language.English)
	flops := float64(r.Config.FLOPs())
	var buf bytes.Buffer

	line := func(res Result) {
		p.Fprintf(&buf, "%s\tElapsed time: %f sec", res.Name, res.Elapsed.Seconds())
		if opts.GFLOPS {
			p.Fprintf(&buf, "\t%.2f GFLOP/s", res.GFLOPS(flops))
		}
		if res.Check != nil {
			p.Fprintf(&buf, "\t%s", res.Check)
		}
		buf.WriteByte('\n')
	}

	buf.WriteString("Sequential version...\n")
	line(r.Sequential)
	buf.WriteString("\nOpenCL version...\n")
	for _, res := range r.Variants {
		line(res)
	}

	if opts.GFLOPS {
		p.Fprintf(&buf, "%d floating-point operations per run\n", int64(flops))
		if best, ok := r.Fastest(); ok {
			p.Fprintf(&buf, "fastest: %s (%s), %.1fx sequential\n",
				best.Name, best.Variant, speedup(r.Sequential, best))
		}
	}

	v := r.Verification
	if !v.Match {
		p.Fprintf(&buf, "%s\n", v)
	}
	if v.Match {
		buf.WriteString("\nSequential version == OpenCL version\n")
	} else {
		buf.WriteString("\nSequential version != OpenCL version\n")
	}

	_, err := w.Write(buf.Bytes())
	return err
}

func speedup(base, res Result) float64 {
	if res.Elapsed <= 0 {
		return 0
	}
	return base.Elapsed.Seconds() / res.Elapsed.Seconds()
}
