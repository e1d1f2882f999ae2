// Package article defines the knowledge base article model consumed by the
// routine pipeline.
package article

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Article is one human-oriented support article awaiting conversion into a
// machine-executable routine.
type Article struct {
	ID       string
	Category string
	Content  string
}

// ErrDuplicateID signals a violated uniqueness invariant in the input set.
var ErrDuplicateID = errors.New("article: duplicate article id")

// Validate checks the per-article field constraints.
func (a Article) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("article: empty id")
	}
	if strings.TrimSpace(a.Content) == "" {
		return fmt.Errorf("article %q: empty content", a.ID)
	}
	return nil
}

// ValidateSet checks that article identifiers are unique within the list.
func ValidateSet(articles []Article) error {
	seen := make(map[string]struct{}, len(articles))
	for _, a := range articles {
		if err := a.Validate(); err != nil {
			return err
		}
		if _, dup := seen[a.ID]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateID, a.ID)
		}
		seen[a.ID] = struct{}{}
	}
	return nil
}

// Load reads articles from a CSV file with header id,category,content.
func Load(path string) ([]Article, error) {
	f, err := os.Open(path) // #nosec G304 -- operator supplied path
	if err != nil {
		return nil, fmt.Errorf("open articles file: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses articles from CSV data. The first record must be the
// id,category,content header.
func Read(r io.Reader) ([]Article, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read articles header: %w", err)
	}
	if !strings.EqualFold(header[0], "id") || !strings.EqualFold(header[1], "category") || !strings.EqualFold(header[2], "content") {
		return nil, fmt.Errorf("unexpected articles header %v, want [id category content]", header)
	}

	var articles []Article
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read articles row: %w", err)
		}
		articles = append(articles, Article{
			ID:       strings.TrimSpace(rec[0]),
			Category: strings.TrimSpace(rec[1]),
			Content:  rec[2],
		})
	}

	if err := ValidateSet(articles); err != nil {
		return nil, err
	}
	return articles, nil
}

// FilterByCategories returns the articles whose category is in the given set.
// An empty filter returns the input unchanged.
func FilterByCategories(articles []Article, categories []string) []Article {
	if len(categories) == 0 {
		return articles
	}
	want := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		want[strings.ToLower(strings.TrimSpace(c))] = struct{}{}
	}
	out := make([]Article, 0, len(articles))
	for _, a := range articles {
		if _, ok := want[strings.ToLower(a.Category)]; ok {
			out = append(out, a)
		}
	}
	return out
}
