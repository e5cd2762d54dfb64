package pathkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sameProject = []string{
	`C:\junichi\takeda\source`,
	`C:/junichi/takeda/source`,
	`C--junichi-takeda-source`,
}

func TestNormalize_ThreeFormsSameKey(t *testing.T) {
	want := Key{Root: "C", Segments: []string{"junichi", "takeda", "source"}}
	for _, raw := range sameProject {
		got := Normalize(raw)
		require.Equal(t, want, got, "Normalize(%q)", raw)
	}
}

func TestDisplay_WindowsFromAnyForm(t *testing.T) {
	for _, raw := range sameProject {
		assert.Equal(t, `C:\junichi\takeda\source`, Display(Normalize(raw), Windows), "Display(Normalize(%q))", raw)
	}
}

func TestDisplay_Styles(t *testing.T) {
	k := Normalize(`c:\work\app`)
	assert.Equal(t, `C:\work\app`, Display(k, Windows))
	assert.Equal(t, "C:/work/app", Display(k, Slash))
	assert.Equal(t, "C--work-app", Display(k, Slug))

	p := Normalize("/home/dev/app")
	assert.Equal(t, `\home\dev\app`, Display(p, Windows))
	assert.Equal(t, "/home/dev/app", Display(p, Slash))
	assert.Equal(t, "-home-dev-app", Display(p, Slug))
	assert.True(t, p.Equal(Normalize("-home-dev-app")))
}

func TestNormalize_OtherShapes(t *testing.T) {
	tests := []struct {
		raw  string
		want Key
	}{
		{"/mnt/c/Users/dev", Key{Root: "C", Segments: []string{"Users", "dev"}}},
		{"-mnt-d-src", Key{Root: "D", Segments: []string{"src"}}},
		{`C:\-foo-bar-baz`, Key{Root: "C", Segments: []string{"foo", "bar", "baz"}}},
		{"C--Users-dev--claude", Key{Root: "C", Segments: []string{"Users", "dev", "claude"}}},
		{`proj\sub`, Key{Segments: []string{"proj", "sub"}}},
		{"C:", Key{Root: "C"}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.raw))
		})
	}
}

func TestNormalize_HyphenSplitsEverywhere(t *testing.T) {
	a := Normalize(`C:\my-app\src`)
	b := Normalize("C--my-app-src")
	assert.True(t, a.Equal(b))
	assert.Equal(t, []string{"my", "app", "src"}, a.Segments)
}

func TestNormalize_MalformedIsVerbatim(t *testing.T) {
	k := Normalize("(desktop)")
	assert.True(t, k.Verbatim)
	assert.Equal(t, "(desktop)", Display(k, Windows))
	assert.Equal(t, "(desktop)", Display(k, Slug))

	empty := Normalize("   ")
	assert.True(t, empty.Verbatim)
	assert.Equal(t, "", Display(empty, Windows))
}

func TestMatches_SeparatorInsensitive(t *testing.T) {
	k := Normalize(`C:\junichi\takeda\source`)

	for _, frag := range []string{
		"takeda/source",
		`takeda\source`,
		"takeda-source",
		"TAKEDA",
		"akeda/sou",
		`C:\junichi`,
		"C--junichi-takeda",
		"/source/",
		"",
	} {
		assert.True(t, Matches(frag, k), "Matches(%q)", frag)
	}

	for _, frag := range []string{"other", "source/takeda", "D:/junichi"} {
		assert.False(t, Matches(frag, k), "Matches(%q)", frag)
	}
}
