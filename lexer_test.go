package clbench

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func tokenTexts(toks []token) []string {
	var out []string
	for _, t := range toks {
		if t.kind != tokEOF {
			out = append(out, t.text)
		}
	}
	return out
}

func TestLex(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{"expression", "acc += A[row*COL_A+k];", []string{"acc", "+=", "A", "[", "row", "*", "COL_A", "+", "k", "]", ";"}},
		{"numbers", "1.5e-3f 0x1F 16u .5", []string{"1.5e-3f", "0x1F", "16u", ".5"}},
		{"comments", "a /* b */ c // d\ne", []string{"a", "c", "e"}},
		{"shift assign", "x <<= 2", []string{"x", "<<=", "2"}},
		{"directive", "#define TS 16\nint", []string{"define TS 16", "int"}},
		{"continued directive", "#define RTS \\\n (TS/WPT)\nx", []string{"define RTS   (TS/WPT)", "x"}},
		{"hash mid-line", "a # b", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, diags := lex(tt.src)
			if tt.want == nil {
				if len(diags) == 0 {
					t.Fatal("expected a diagnostic")
				}
				return
			}
			if len(diags) != 0 {
				t.Fatalf("unexpected diagnostics: %v", diags)
			}
			if diff := cmp.Diff(tt.want, tokenTexts(toks)); diff != "" {
				t.Errorf("tokens mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLexPositions(t *testing.T) {
	toks, _ := lex("a\n  bb\n\tc")
	want := [][2]int{{1, 1}, {2, 3}, {3, 2}}
	for i, w := range want {
		if toks[i].line != w[0] || toks[i].col != w[1] {
			t.Errorf("token %q at %d:%d, want %d:%d", toks[i].text, toks[i].line, toks[i].col, w[0], w[1])
		}
	}
	if last := toks[len(toks)-1]; last.kind != tokEOF {
		t.Errorf("last token kind = %v, want EOF", last.kind)
	}
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"a /* open", "unterminated /* comment"},
		{"x = 'c", "missing terminating ' character"},
		{"x @ y", "invalid character '@' in source"},
	}
	for _, tt := range tests {
		_, diags := lex(tt.src)
		if len(diags) != 1 {
			t.Fatalf("lex(%q): %d diagnostics, want 1", tt.src, len(diags))
		}
		if diags[0].msg != tt.want || diags[0].severity != sevError {
			t.Errorf("lex(%q) = %v, want error %q", tt.src, diags[0], tt.want)
		}
	}
}
