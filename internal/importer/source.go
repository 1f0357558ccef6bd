package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// Record is one element of the remote JSON array. Only name is required.
type Record struct {
	Name      string   `json:"name"`
	Quantity  Quantity `json:"quantity"`
	Category  *string  `json:"category"`
	Completed Truthy   `json:"completed"`
}

// Quantity accepts a JSON string or number. null and absent decode to "".
type Quantity string

func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*q = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*q = Quantity(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("quantity must be a string or number: %w", err)
	}
	*q = Quantity(n.String())
	return nil
}

// Truthy decodes any JSON value using JavaScript truthiness: false, 0, "",
// and null are false; everything else is true.
type Truthy bool

func (b *Truthy) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*b = false
	case bool:
		*b = Truthy(t)
	case float64:
		*b = t != 0
	case string:
		*b = t != ""
	default:
		*b = true
	}
	return nil
}

// Source yields the records to merge.
type Source interface {
	Fetch(ctx context.Context) ([]Record, error)
	String() string
}

// HTTPSource fetches a JSON array with a GET request.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

func (s HTTPSource) String() string { return s.URL }

func (s HTTPSource) Fetch(ctx context.Context) ([]Record, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("import request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("import source returned status %d", resp.StatusCode)
	}
	return decode(resp.Body)
}

// FileSource reads the JSON array from a local file.
type FileSource struct {
	Path string
}

func (s FileSource) String() string { return "file://" + s.Path }

func (s FileSource) Fetch(ctx context.Context) ([]Record, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()
	return decode(f)
}

// ParseSource picks a FileSource for file:// URLs and an HTTPSource otherwise.
func ParseSource(raw string, client *http.Client) (Source, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return nil, fmt.Errorf("import source is empty")
	case strings.HasPrefix(raw, "file://"):
		return FileSource{Path: strings.TrimPrefix(raw, "file://")}, nil
	case strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"):
		return HTTPSource{URL: raw, Client: client}, nil
	default:
		return nil, fmt.Errorf("unsupported import source %q", raw)
	}
}

// MaxPayloadBytes caps how much of an import source is read.
const MaxPayloadBytes = 4 << 20

func decode(r io.Reader) ([]Record, error) {
	lr := &io.LimitedReader{R: r, N: MaxPayloadBytes + 1}
	var records []Record
	err := json.NewDecoder(lr).Decode(&records)
	if lr.N <= 0 {
		return nil, fmt.Errorf("import payload exceeds %d bytes", MaxPayloadBytes)
	}
	if err != nil {
		return nil, fmt.Errorf("decode import payload: %w", err)
	}
	return records, nil
}
