package document

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/arthur-debert/ucp/internal/ucp/content"
)

func TestToJSONFromJSONRoundTripsFingerprint(t *testing.T) {
	d := New("notebook")
	a, err := d.AddBlock(d.Root, content.Text{Text: "Hello", Format: content.TextMarkdown}, &SemanticRole{Category: "heading"}, NewMetadata())
	if err != nil {
		t.Fatal(err)
	}
	m := NewMetadata()
	m.Tags["important"] = struct{}{}
	if _, err := d.AddBlock(a, content.Code{Language: "go", Source: "package main"}, nil, m); err != nil {
		t.Fatal(err)
	}
	if err := d.AddEdge(a, EdgeReferences, d.Root, nil); err != nil {
		t.Fatal(err)
	}

	data, err := d.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	restored, err := FromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}

	if restored.Fingerprint() != d.Fingerprint() {
		t.Fatalf("fingerprint mismatch after round-trip: got %s, want %s", restored.Fingerprint(), d.Fingerprint())
	}
	if restored.Namespace != d.Namespace {
		t.Fatalf("expected namespace %q to round-trip, got %q", d.Namespace, restored.Namespace)
	}
	if len(restored.Indices.ByTag["important"]) != 1 {
		t.Fatal("expected rebuilt ByTag index to contain the restored block")
	}
}

func TestFromJSONRejectsMalformedDocument(t *testing.T) {
	if _, err := FromJSON([]byte("not json")); err == nil {
		t.Fatal("expected an error for malformed input")
	}
}

func TestToJSONRoundTripsAllContentTypes(t *testing.T) {
	d := New("")
	variants := []content.Content{
		content.Text{Text: "t", Format: content.TextPlain},
		content.Code{Language: "go", Source: "x := 1"},
		content.Table{Columns: []content.Column{{Name: "a", Type: "string"}}, Rows: [][]string{{"v"}}},
		content.Math{Format: content.MathLatex, Expression: "x^2", Display: true},
		content.Media{MediaType: "image/png", Source: content.MediaSource{Kind: content.MediaSourceURL, Payload: "http://example.com/x.png"}},
		content.JSON{Value: map[string]any{"k": "v"}},
		content.Binary{MIMEType: "application/octet-stream", Payload: []byte{1, 2, 3}},
		content.Composite{Layout: content.LayoutVertical, Children: []string{"blk_000000000000000000000000"}},
	}
	for _, c := range variants {
		if _, err := d.AddBlock(d.Root, c, nil, NewMetadata()); err != nil {
			t.Fatalf("AddBlock(%T): %v", c, err)
		}
	}

	data, err := d.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	restored, err := FromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if len(restored.Blocks) != len(d.Blocks) {
		t.Fatalf("expected %d blocks, got %d", len(d.Blocks), len(restored.Blocks))
	}
	for id, b := range d.Blocks {
		rb, ok := restored.Blocks[id]
		if !ok {
			t.Fatalf("missing restored block %s", id)
		}
		if diff := cmp.Diff(b.Content, rb.Content); diff != "" {
			t.Fatalf("block %s: content mismatch after round-trip (-want +got):\n%s", id, diff)
		}
	}
}
