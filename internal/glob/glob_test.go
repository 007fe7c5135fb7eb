package glob

import "testing"

func TestSetMatch_IncludeExclude(t *testing.T) {
	s := Compile([]string{"posts/**/*.md", "!posts/drafts/*"})
	cases := map[string]bool{
		"posts/a.md":          true,
		"posts/2024/b.md":     true,
		"posts/drafts/c.md":   false,
		"readme.md":           false,
		"./posts/a.md":        true,
		"posts/notes/img.png": false,
	}
	for file, want := range cases {
		if got := s.Match(file); got != want {
			t.Errorf("Match(%q) = %v, want %v", file, got, want)
		}
	}
}

func TestSetMatch_DirectoryPattern(t *testing.T) {
	s := Compile([]string{"posts"})
	if !s.Match("posts/a.md") {
		t.Error("directory pattern should match files below it")
	}
	if s.Match("postscript.md") {
		t.Error("directory pattern must not match a sibling prefix")
	}
}

func TestSetMatch_OnlyExcludes(t *testing.T) {
	if Compile([]string{"!posts/*"}).Match("other.md") {
		t.Error("a set with no includes matches nothing")
	}
}

func TestRebase(t *testing.T) {
	cases := []struct {
		dir, pattern, want string
	}{
		{".", "posts/*.md", "posts/*.md"},
		{"blog", "posts/*.md", "blog/posts/*.md"},
		{"blog", "../posts/*.md", "posts/*.md"},
		{"blog", "/gallery/*", "gallery/*"},
		{"blog", "!drafts/*", "!blog/drafts/*"},
	}
	for _, c := range cases {
		if got := Rebase(c.dir, c.pattern); got != c.want {
			t.Errorf("Rebase(%q, %q) = %q, want %q", c.dir, c.pattern, got, c.want)
		}
	}
}

func TestFilter_PreservesOrder(t *testing.T) {
	got := Compile([]string{"*.md"}).Filter([]string{"b.md", "x.txt", "a.md"})
	if len(got) != 2 || got[0] != "b.md" || got[1] != "a.md" {
		t.Errorf("Filter = %v", got)
	}
}

func TestSetMatchDir(t *testing.T) {
	cases := []struct {
		patterns []string
		dir      string
		want     bool
	}{
		{[]string{"posts/*.md"}, "posts", true},
		{[]string{"posts/*.md"}, ".", true},
		{[]string{"posts/*.md"}, "posts/old", false},
		{[]string{"posts/*.md"}, "posts/a.md", false},
		{[]string{"posts/*.md"}, "blog", false},
		{[]string{"content/posts/*.md"}, "content", true},
		{[]string{"posts/**/*.md"}, "posts/2024/q1", true},
		{[]string{"posts/*/*.md"}, "posts/2024", true},
		{[]string{"posts/*/*.md"}, "posts/2024/q1", false},
		{[]string{"*.md"}, "posts", false},
		{[]string{"posts/a.md"}, "posts", true},
		{[]string{"posts"}, "posts/old", true},
		{[]string{"posts/**", "!posts/drafts"}, "posts/drafts", false},
	}
	for _, tc := range cases {
		if got := Compile(tc.patterns).MatchDir(tc.dir); got != tc.want {
			t.Errorf("MatchDir(%v, %q) = %v, want %v", tc.patterns, tc.dir, got, tc.want)
		}
	}
}

func TestDoublestarMatcher(t *testing.T) {
	m := Doublestar{}
	patterns := []string{"posts/*.md", "!posts/private.md"}
	if !m.Match(patterns, "posts/a.md") {
		t.Error("file below the pattern should match")
	}
	if !m.Match(patterns, "posts") {
		t.Error("a removed directory holding matches should match")
	}
	if m.Match(patterns, "posts/private.md") {
		t.Error("excluded file must not match")
	}
	if m.Match(patterns, "notes") {
		t.Error("unrelated directory must not match")
	}
}
