package dataset

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/unicode/norm"

	"github.com/cognicore/fanmap/pkg/fanmap/internalerr"
	"github.com/cognicore/fanmap/pkg/fanmap/record"
)

// LoadCSV reads a survey export from a local CSV file.
func LoadCSV(path string) (*record.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV parses CSV with a header line. Short rows are padded with blanks.
func ReadCSV(r io.Reader) (*record.Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty csv: %w", internalerr.ErrMissingData)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, h := range header {
		header[i] = CleanHeader(h)
	}

	var rows []record.Record
	for line := 2; ; line++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		values := make(map[string]string, len(header))
		for i, h := range header {
			if h == "" {
				continue
			}
			if i < len(fields) {
				values[h] = fields[i]
			} else {
				values[h] = ""
			}
		}
		rows = append(rows, record.NewRecord(values))
	}
	return record.New(header, rows), nil
}

// Loader reads survey exports, reporting skipped input through Log.
type Loader struct {
	Log     logrus.FieldLogger
	Fetcher *Fetcher
}

// NewLoader returns a Loader logging to log, or to the standard logger when
// log is nil.
func NewLoader(log logrus.FieldLogger) *Loader {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Loader{Log: log, Fetcher: &Fetcher{}}
}

func (l *Loader) logger() logrus.FieldLogger {
	if l.Log == nil {
		return logrus.StandardLogger()
	}
	return l.Log
}

// LoadJSONL reads path with a default Loader.
func LoadJSONL(path string) (*record.Dataset, error) {
	return NewLoader(nil).LoadJSONL(path)
}

// LoadJSONL reads one JSON object per line. The header is the sorted union
// of keys. Malformed lines are skipped with a warning.
func (l *Loader) LoadJSONL(path string) (*record.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	seen := make(map[string]struct{})
	var rows []record.Record
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(text), &obj); err != nil {
			l.logger().WithFields(logrus.Fields{"path": path, "line": line}).
				Warnf("skipping malformed JSON: %v", err)
			continue
		}
		values := make(map[string]string, len(obj))
		for k, v := range obj {
			k = CleanHeader(k)
			seen[k] = struct{}{}
			values[k] = cell(v)
		}
		rows = append(rows, record.NewRecord(values))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no valid rows in %s: %w", path, internalerr.ErrMissingData)
	}

	header := make([]string, 0, len(seen))
	for k := range seen {
		header = append(header, k)
	}
	sort.Strings(header)
	return record.New(header, rows), nil
}

func cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			if s := cell(p); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(t)
	}
}

// CleanHeader trims a column name and folds compatibility characters
// (full-width letters, ligatures, BOM) so lookups by name succeed.
func CleanHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.TrimSpace(norm.NFKC.String(h))
}

// Fetcher downloads survey exports over HTTP.
type Fetcher struct {
	HTTPClient *http.Client
}

func (f *Fetcher) httpClient() *http.Client {
	if f != nil && f.HTTPClient != nil {
		return f.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

// Fetch downloads a CSV and decodes it to UTF-8 using the declared or
// sniffed charset.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*record.Dataset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d: %w", url, resp.StatusCode, internalerr.ErrMissingData)
	}

	body, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}
	return ReadCSV(body)
}

// Fetch uses a default Fetcher.
func Fetch(ctx context.Context, url string) (*record.Dataset, error) {
	return (&Fetcher{}).Fetch(ctx, url)
}

// Load reads a dataset with a default Loader.
func Load(ctx context.Context, path, url string) (*record.Dataset, error) {
	return NewLoader(nil).Load(ctx, path, url)
}

// Load prefers the local file and falls back to url when the file does not
// exist. Files ending in .jsonl are read as JSON lines.
func (l *Loader) Load(ctx context.Context, path, url string) (*record.Dataset, error) {
	if path != "" {
		_, err := os.Stat(path)
		switch {
		case err == nil:
			if strings.HasSuffix(strings.ToLower(path), ".jsonl") {
				return l.LoadJSONL(path)
			}
			return LoadCSV(path)
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
	}
	if url == "" {
		return nil, fmt.Errorf("%q not found and no fallback url: %w", path, internalerr.ErrMissingData)
	}
	l.logger().WithFields(logrus.Fields{"path": path, "url": url}).Info("dataset file missing, downloading")
	return l.Fetcher.Fetch(ctx, url)
}
