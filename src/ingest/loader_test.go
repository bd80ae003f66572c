package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadCSVsRendersHeaderValueRows(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "conditions.csv"),
		"condition,treatment\nmigraine,rest and hydration\nflu,fluids and rest\n")

	l := NewLoader("", dir, "")
	docs, err := l.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2", len(docs))
	}

	want := "condition: migraine\ntreatment: rest and hydration"
	if docs[0].Content != want {
		t.Errorf("row content = %q, want %q", docs[0].Content, want)
	}
	if docs[0].Metadata["source"] != "conditions.csv" || docs[0].Metadata["row"] != "1" {
		t.Errorf("unexpected metadata: %+v", docs[0].Metadata)
	}
	if docs[0].ID == "" || docs[0].ID == docs[1].ID {
		t.Error("documents should have distinct non-empty ids")
	}
}

func TestLoadCSVsSkipsUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "empty.csv"), "")
	writeFile(t, filepath.Join(dir, "good.csv"), "symptom\ncough\n")

	l := NewLoader("", dir, "")
	docs, err := l.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("got %d documents, want 1 from the readable file", len(docs))
	}
	if docs[0].Content != "symptom: cough" {
		t.Errorf("content = %q", docs[0].Content)
	}
}

func TestLoadURLsFetchesAndStripsMarkup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/flu":
			w.Write([]byte(`<html><head><style>body{color:red}</style></head>` +
				`<body><script>alert(1)</script><h1>Influenza</h1><p>Rest and fluids.</p></body></html>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	urlsFile := filepath.Join(dir, "urls.txt")
	writeFile(t, urlsFile, strings.Join([]string{
		"# trusted sources",
		"",
		srv.URL + "/flu",
		srv.URL + "/missing",
	}, "\n"))

	l := NewLoader("", "", urlsFile)
	docs, err := l.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("got %d documents, want 1 (dead link skipped)", len(docs))
	}
	if docs[0].Content != "Influenza Rest and fluids." {
		t.Errorf("content = %q", docs[0].Content)
	}
	if docs[0].Metadata["source"] != srv.URL+"/flu" {
		t.Errorf("source metadata = %q", docs[0].Metadata["source"])
	}
}

func TestMissingSourcesYieldNothing(t *testing.T) {
	l := NewLoader(
		filepath.Join(t.TempDir(), "no-pdfs"),
		filepath.Join(t.TempDir(), "no-csvs"),
		filepath.Join(t.TempDir(), "no-urls.txt"),
	)
	docs, err := l.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("got %d documents from missing sources", len(docs))
	}
}

func TestPlaceholder(t *testing.T) {
	doc := Placeholder()
	if doc.ID != "system-placeholder" {
		t.Errorf("id = %q", doc.ID)
	}
	if doc.Metadata["source"] != "system" {
		t.Errorf("metadata = %+v", doc.Metadata)
	}
}

func TestHTMLToText(t *testing.T) {
	got := htmlToText(`<div><script>ignored()</script>Take <b>two</b> tablets.</div>`)
	if got != "Take two tablets." {
		t.Errorf("htmlToText = %q", got)
	}
}

func TestReadURLListComments(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "urls.txt")
	writeFile(t, path, "# comment\n\nhttps://a.example\n  https://b.example  \n")

	urls, err := readURLList(path)
	if err != nil {
		t.Fatalf("readURLList: %v", err)
	}
	if len(urls) != 2 || urls[0] != "https://a.example" || urls[1] != "https://b.example" {
		t.Errorf("urls = %v", urls)
	}
}
