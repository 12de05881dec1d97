package input

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_PreservesOrderAndSkipsBlankLines(t *testing.T) {
	tmp := t.TempDir()
	list := filepath.Join(tmp, "list.txt")
	cookies := filepath.Join(tmp, "cookies.txt")
	writeFile(t, list, "\uFEFFhttps://a.example/list?list=A\n\n   \n# comment\n  https://b.example/list?list=B  \r\nhttps://c.example/list?list=C")
	writeFile(t, cookies, "# Netscape HTTP Cookie File\n.youtube.com\tTRUE\t/\tTRUE\t0\tSID\tx\n")

	in, err := Load(Paths{ListPath: list, CookiesPath: cookies})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []string{
		"https://a.example/list?list=A",
		"https://b.example/list?list=B",
		"https://c.example/list?list=C",
	}
	if len(in.Jobs) != len(want) {
		t.Fatalf("expected %d jobs, got %d", len(want), len(in.Jobs))
	}
	for i, job := range in.Jobs {
		if job.URL != want[i] {
			t.Fatalf("job %d: got %q want %q", i, job.URL, want[i])
		}
		if job.Index != i+1 {
			t.Fatalf("job %d: unexpected index %d", i, job.Index)
		}
	}
	if in.CookiesPath != cookies {
		t.Fatalf("unexpected cookies path %q", in.CookiesPath)
	}
}

func TestLoad_KeepsDuplicateLines(t *testing.T) {
	tmp := t.TempDir()
	list := filepath.Join(tmp, "list.txt")
	cookies := filepath.Join(tmp, "cookies.txt")
	writeFile(t, list, "A\nA\n")
	writeFile(t, cookies, "x")

	in, err := Load(Paths{ListPath: list, CookiesPath: cookies})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(in.Jobs) != 2 {
		t.Fatalf("expected duplicate lines to stay separate jobs, got %d", len(in.Jobs))
	}
}

func TestLoad_MissingInputs(t *testing.T) {
	cases := []struct {
		name    string
		list    *string
		cookies *string
	}{
		{name: "list absent", list: nil, cookies: strPtr("x")},
		{name: "list empty", list: strPtr(""), cookies: strPtr("x")},
		{name: "list blank lines only", list: strPtr("\n  \n\t\n"), cookies: strPtr("x")},
		{name: "list comments only", list: strPtr("# nothing yet\n"), cookies: strPtr("x")},
		{name: "cookies absent", list: strPtr("A\n"), cookies: nil},
		{name: "cookies empty", list: strPtr("A\n"), cookies: strPtr("")},
		{name: "cookies whitespace", list: strPtr("A\n"), cookies: strPtr(" \n\n")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tmp := t.TempDir()
			list := filepath.Join(tmp, "list.txt")
			cookies := filepath.Join(tmp, "cookies.txt")
			if tc.list != nil {
				writeFile(t, list, *tc.list)
			}
			if tc.cookies != nil {
				writeFile(t, cookies, *tc.cookies)
			}

			_, err := Load(Paths{ListPath: list, CookiesPath: cookies})
			if err == nil {
				t.Fatal("expected missing input error")
			}
			if !errors.Is(err, ErrMissingInput) {
				t.Fatalf("expected ErrMissingInput, got %v", err)
			}
			var mie *MissingInputError
			if !errors.As(err, &mie) {
				t.Fatalf("expected *MissingInputError, got %T", err)
			}
		})
	}
}

func TestLoad_CookiesDirectoryIsRejected(t *testing.T) {
	tmp := t.TempDir()
	list := filepath.Join(tmp, "list.txt")
	writeFile(t, list, "A\n")

	_, err := Load(Paths{ListPath: list, CookiesPath: tmp})
	if !errors.Is(err, ErrMissingInput) {
		t.Fatalf("expected ErrMissingInput for directory cookies path, got %v", err)
	}
}

func TestLoad_AbsentListWrapsNotExist(t *testing.T) {
	tmp := t.TempDir()
	_, err := Load(Paths{ListPath: filepath.Join(tmp, "nope.txt"), CookiesPath: filepath.Join(tmp, "c.txt")})
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected wrapped os.ErrNotExist, got %v", err)
	}
}

func strPtr(s string) *string { return &s }
