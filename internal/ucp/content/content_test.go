package content

import "testing"

func TestTextCanonicalize(t *testing.T) {
	in := Text{Text: "Hello,\r\n  UCP!  \t again\r", Format: TextPlain}
	got := string(in.Canonicalize())
	want := "Hello, UCP! again"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestCodePreservesWhitespace(t *testing.T) {
	c := Code{Language: "go", Source: "func  x() {\n  return\n}"}
	got := string(c.Canonicalize())
	if got[len(got)-len(c.Source):] != c.Source {
		t.Fatalf("expected verbatim source preserved, got %q", got)
	}
}

func TestJSONCanonicalSortsKeys(t *testing.T) {
	a := JSON{Value: map[string]any{"b": 1.0, "a": 2.0}}
	b := JSON{Value: map[string]any{"a": 2.0, "b": 1.0}}
	if string(a.Canonicalize()) != string(b.Canonicalize()) {
		t.Fatalf("expected key order independence")
	}
	if string(a.Canonicalize()) != `{"a":2,"b":1}` {
		t.Fatalf("unexpected canonical form: %s", a.Canonicalize())
	}
}

func TestTableCanonicalize(t *testing.T) {
	tb := Table{
		Columns: []Column{{Name: "a", Type: "string"}, {Name: "b", Type: "int"}},
		Rows:    [][]string{{"x", "1"}, {"y", "2"}},
	}
	got := string(tb.Canonicalize())
	want := "a:string" + unitSeparator + "b:int" + recordSeparator + "x" + unitSeparator + "1" + recordSeparator + "y" + unitSeparator + "2"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
