package goquery_test

import (
	"testing"

	"github.com/fwojciec/newsgrab/goquery"
	"github.com/stretchr/testify/assert"
)

func TestBalance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"closes paragraph before heading", `<p>A<h2>B</h2>`, `<p>A</p><h2>B</h2>`},
		{"closes paragraph before paragraph", `<p>A<p>B`, `<p>A</p><p>B</p>`},
		{"closes paragraph before figure", `<p class="x">A<figure><img src="i.png"></figure>`, `<p class="x">A</p><figure><img src="i.png"></figure>`},
		{"closes paragraph before blockquote", `<p>A<blockquote><p>Q</p></blockquote>`, `<p>A</p><blockquote><p>Q</p></blockquote>`},
		{"leaves balanced markup alone", `<p>A</p><h3>B</h3><p>C</p>`, `<p>A</p><h3>B</h3><p>C</p>`},
		{"matches tags case-insensitively", `<P>A<H2>B</H2>`, `<P>A</p><H2>B</H2>`},
		{"ignores similarly named tags", `<p>A<pre>x</pre><param>`, `<p>A<pre>x</pre><param></p>`},
		{"closes paragraph open at end", `<div><p>A</div>`, `<div><p>A</div></p>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, goquery.Balance(tt.in))
		})
	}
}

func TestBalance_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		`<p>A<h2>B</h2>`,
		`<p>A<p>B<p>C`,
		`<p>A<blockquote><p>Q<figure>F</figure></blockquote>tail`,
		`<h1>T</h1><p>x</p>`,
		``,
	}

	for _, in := range inputs {
		once := goquery.Balance(in)
		assert.Equal(t, once, goquery.Balance(once), "input %q", in)
	}
}
