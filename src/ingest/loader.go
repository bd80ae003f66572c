package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"

	"github.com/medkitlab/medirag/src/concurrent"
	"github.com/medkitlab/medirag/src/index"
)

const urlBatchSize = 5

// Loader gathers raw knowledge documents from PDF files, CSV files and
// a URL list. Sources that cannot be read are logged and skipped so a
// single bad file never blocks an index rebuild.
type Loader struct {
	PDFDir   string
	CSVDir   string
	URLsFile string

	client *http.Client
}

func NewLoader(pdfDir, csvDir, urlsFile string) *Loader {
	return &Loader{
		PDFDir:   pdfDir,
		CSVDir:   csvDir,
		URLsFile: urlsFile,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Placeholder is indexed when no sources yield any content, so the
// index is never empty.
func Placeholder() index.Document {
	return index.Document{
		ID:       "system-placeholder",
		Content:  "No medical documents loaded.",
		Metadata: map[string]string{"source": "system"},
	}
}

// LoadAll collects documents from every configured source. Missing
// directories and files are not errors; an assistant can run on any
// subset of sources.
func (l *Loader) LoadAll(ctx context.Context) ([]index.Document, error) {
	var docs []index.Document

	pdfs, err := l.loadPDFs()
	if err != nil {
		return nil, err
	}
	docs = append(docs, pdfs...)

	csvs, err := l.loadCSVs()
	if err != nil {
		return nil, err
	}
	docs = append(docs, csvs...)

	urls, err := l.loadURLs(ctx)
	if err != nil {
		return nil, err
	}
	docs = append(docs, urls...)

	log.Printf("ingest: loaded %d documents (%d pdf pages, %d csv rows, %d web pages)",
		len(docs), len(pdfs), len(csvs), len(urls))
	return docs, nil
}

func (l *Loader) loadPDFs() ([]index.Document, error) {
	paths, err := listFiles(l.PDFDir, ".pdf")
	if err != nil {
		return nil, err
	}

	var docs []index.Document
	for _, path := range paths {
		pages, err := readPDF(path)
		if err != nil {
			log.Printf("ingest: skipping %s: %v", path, err)
			continue
		}
		name := filepath.Base(path)
		for i, text := range pages {
			if text == "" {
				continue
			}
			docs = append(docs, index.Document{
				ID:      uuid.NewString(),
				Content: text,
				Metadata: map[string]string{
					"source": name,
					"page":   strconv.Itoa(i + 1),
				},
			})
		}
	}
	return docs, nil
}

// readPDF extracts plain text per page.
func readPDF(path string) ([]string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A broken page should not discard the rest of the file.
			log.Printf("ingest: page %d of %s unreadable: %v", i, filepath.Base(path), err)
			pages = append(pages, "")
			continue
		}
		pages = append(pages, strings.TrimSpace(text))
	}
	return pages, nil
}

// loadCSVs turns each data row into one document of "header: value"
// lines, which embeds better than raw comma-separated text.
func (l *Loader) loadCSVs() ([]index.Document, error) {
	paths, err := listFiles(l.CSVDir, ".csv")
	if err != nil {
		return nil, err
	}

	var docs []index.Document
	for _, path := range paths {
		rows, err := readCSV(path)
		if err != nil {
			log.Printf("ingest: skipping %s: %v", path, err)
			continue
		}
		name := filepath.Base(path)
		for i, row := range rows {
			docs = append(docs, index.Document{
				ID:      uuid.NewString(),
				Content: row,
				Metadata: map[string]string{
					"source": name,
					"row":    strconv.Itoa(i + 1),
				},
			})
		}
	}
	return docs, nil
}

func readCSV(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	var rows []string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		var b strings.Builder
		for i, field := range record {
			if i < len(header) {
				b.WriteString(header[i])
				b.WriteString(": ")
			}
			b.WriteString(field)
			b.WriteString("\n")
		}
		rows = append(rows, strings.TrimSpace(b.String()))
	}
	return rows, nil
}

// loadURLs fetches the pages listed in the URLs file, a few at a time.
// If a batch fails it is retried one URL at a time so a single dead
// link only loses itself.
func (l *Loader) loadURLs(ctx context.Context) ([]index.Document, error) {
	urls, err := readURLList(l.URLsFile)
	if err != nil || len(urls) == 0 {
		return nil, err
	}

	var docs []index.Document
	for start := 0; start < len(urls); start += urlBatchSize {
		end := start + urlBatchSize
		if end > len(urls) {
			end = len(urls)
		}
		batch := urls[start:end]

		fetched, err := concurrent.ParallelMap(ctx, batch, func(u string) (index.Document, error) {
			return l.fetchURL(ctx, u)
		}, urlBatchSize)
		if err == nil {
			docs = append(docs, fetched...)
			continue
		}

		log.Printf("ingest: batch fetch failed, retrying URLs individually: %v", err)
		for _, u := range batch {
			doc, err := l.fetchURL(ctx, u)
			if err != nil {
				log.Printf("ingest: skipping %s: %v", u, err)
				continue
			}
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// readURLList returns one URL per non-empty, non-comment line. A
// missing file just means no web sources are configured.
func readURLList(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read url list: %w", err)
	}

	var urls []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, nil
}

func (l *Loader) fetchURL(ctx context.Context, url string) (index.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return index.Document{}, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return index.Document{}, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return index.Document{}, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return index.Document{}, fmt.Errorf("read %s: %w", url, err)
	}

	text := htmlToText(string(body))
	if text == "" {
		return index.Document{}, fmt.Errorf("fetch %s: no extractable text", url)
	}
	return index.Document{
		ID:       uuid.NewString(),
		Content:  text,
		Metadata: map[string]string{"source": url},
	}, nil
}

// htmlToText keeps visible text and drops markup, scripts and styles.
func htmlToText(page string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(page))

	var b strings.Builder
	skipDepth := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(b.String())
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if tag := string(name); tag == "script" || tag == "style" {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if tag := string(name); (tag == "script" || tag == "style") && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			text := strings.TrimSpace(string(tokenizer.Text()))
			if text == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(text)
		}
	}
}

// listFiles returns the paths under dir with the given extension, in
// name order so rebuilds are deterministic. A missing dir yields none.
func listFiles(dir, ext string) ([]string, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ext) {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}
