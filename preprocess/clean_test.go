package preprocess

import "testing"

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "crlf_to_lf",
			in:   "one\r\ntwo\r\nthree",
			want: "one\ntwo\nthree",
		},
		{
			name: "stray_carriage_returns",
			in:   "one\rtwo",
			want: "onetwo",
		},
		{
			name: "unicode_separators",
			in:   "one two three",
			want: "one\ntwo\n\nthree",
		},
		{
			name: "exotic_whitespace_removed",
			in:   "a bc",
			want: "ab" + "c",
		},
		{
			name: "lines_trimmed",
			in:   "  padded line  \n\tanother\t",
			want: "padded line\nanother",
		},
		{
			name: "newline_runs_condensed",
			in:   "para one\n\n\n\n\npara two",
			want: "para one\n\npara two",
		},
		{
			name: "document_trimmed",
			in:   "\n\n  body  \n\n",
			want: "body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.in); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCleanIsIdempotent(t *testing.T) {
	in := "  First line \r\n\r\n\r\n Second line. Third. "
	once := Clean(in)
	if twice := Clean(once); twice != once {
		t.Errorf("Clean not idempotent: %q != %q", twice, once)
	}
}
