package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"canoncheck/internal/model"
)

// ReadStories loads a batch dataset: a CSV with a header row naming at
// least the id, book_name and content columns, in any order. Extra
// columns are ignored. A row whose id does not parse is a structural
// defect in the dataset and aborts the read.
func ReadStories(path string) ([]model.Story, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // Tolerate ragged trailing columns

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("dataset %s is empty", path)
	}

	cols := map[string]int{}
	for i, name := range rows[0] {
		cols[name] = i
	}
	for _, required := range []string{"id", "book_name", "content"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("dataset %s is missing required column %q", path, required)
		}
	}

	stories := make([]model.Story, 0, len(rows)-1)
	for n, row := range rows[1:] {
		if len(row) <= cols["id"] || len(row) <= cols["book_name"] || len(row) <= cols["content"] {
			return nil, fmt.Errorf("dataset row %d: too few columns", n+2)
		}
		id, err := strconv.Atoi(row[cols["id"]])
		if err != nil {
			return nil, fmt.Errorf("dataset row %d: bad id %q: %w", n+2, row[cols["id"]], err)
		}
		stories = append(stories, model.Story{
			ID:       id,
			BookName: row[cols["book_name"]],
			Content:  row[cols["content"]],
		})
	}

	return stories, nil
}

// DatasetBooks returns the unique book names a dataset references, in
// first-seen order. Used to chunk exactly the books a batch run needs.
func DatasetBooks(path string) ([]string, error) {
	stories, err := ReadStories(path)
	if err != nil {
		return nil, err
	}

	var names []string
	seen := make(map[string]struct{})
	for _, s := range stories {
		if _, dup := seen[s.BookName]; dup {
			continue
		}
		seen[s.BookName] = struct{}{}
		names = append(names, s.BookName)
	}

	return names, nil
}

// WriteResults writes the batch summary table: one row per story with
// its numeric label and the dossier file backing it.
func WriteResults(path string, results []model.StoryResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create results file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "label", "evidence_file"}); err != nil {
		return err
	}
	for _, r := range results {
		row := []string{strconv.Itoa(r.ID), strconv.Itoa(int(r.Label)), r.EvidenceFile}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()

	return w.Error()
}
