// Package profile defines the structured profile document that feeds the
// RAG pipeline, and its JSON loader.
//
// The document is a read-only input: the pipeline never mutates it. All
// fields are optional; a section that is absent in the JSON file simply
// produces no chunks.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// ErrNotFound indicates the profile file does not exist at the given path.
var ErrNotFound = errors.New("profile file not found")

// Document is the top-level profile record.
type Document struct {
	Personal   *Personal           `json:"personal,omitempty"`
	Education  *Education          `json:"education,omitempty"`
	Experience []Experience        `json:"experience,omitempty"`
	Skills     map[string][]string `json:"skills,omitempty"`
	Projects   []Project           `json:"projects,omitempty"`
}

// Personal holds contact and location information.
type Personal struct {
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
	Email    string `json:"email,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
	GitHub   string `json:"github,omitempty"`
	Summary  string `json:"summary,omitempty"`
}

// Education holds the academic background.
type Education struct {
	Degree             string   `json:"degree"`
	Institution        string   `json:"institution,omitempty"`
	CGPA               string   `json:"cgpa,omitempty"`
	ExpectedGraduation string   `json:"expected_graduation,omitempty"`
	Coursework         []string `json:"relevant_coursework,omitempty"`
}

// Experience is a single work-experience entry.
type Experience struct {
	Role             string   `json:"role"`
	Company          string   `json:"company,omitempty"`
	Location         string   `json:"location,omitempty"`
	Duration         string   `json:"duration,omitempty"`
	Responsibilities []string `json:"responsibilities,omitempty"`
	Technologies     []string `json:"technologies,omitempty"`
}

// Project is a single portfolio project entry.
type Project struct {
	Name         string   `json:"name"`
	Subtitle     string   `json:"subtitle,omitempty"`
	Description  string   `json:"description,omitempty"`
	Highlights   []string `json:"highlights,omitempty"`
	Technologies []string `json:"technologies,omitempty"`
	GitHub       string   `json:"github,omitempty"`
	Demo         string   `json:"demo,omitempty"`
}

// Empty reports whether the document has no content at all.
func (d *Document) Empty() bool {
	return d == nil ||
		(d.Personal == nil && d.Education == nil &&
			len(d.Experience) == 0 && len(d.Skills) == 0 && len(d.Projects) == 0)
}

// Load reads and parses a profile document from a JSON file.
// A missing file is reported as ErrNotFound so callers can treat it as a
// non-fatal condition (the host application keeps serving without chat).
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("reading profile %s: %w", path, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing profile %s: %w", path, err)
	}

	return &doc, nil
}
