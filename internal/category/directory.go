// Package category holds the static directory that maps a user-facing
// category label to the staff recipient of the message.
package category

import (
	"errors"
	"fmt"
	"os"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// AnonymousFeedback is the distinguished category whose submissions are
// always anonymous.
const AnonymousFeedback = "Anonymous Company Feedback"

var ErrUnknownCategory = errors.New("unknown category")

type Mapping struct {
	Label         string `yaml:"label" json:"label"`
	RecipientName string `yaml:"recipient_name" json:"recipient_name"`
	Email         string `yaml:"email" json:"email"`
	PhoneExt      string `yaml:"phone_ext" json:"phone_ext,omitempty"`
	Anonymous     bool   `yaml:"anonymous" json:"anonymous,omitempty"`
}

// Directory is immutable after construction and safe for concurrent use.
type Directory struct {
	mappings []Mapping
}

func New(mappings []Mapping) *Directory {
	return &Directory{mappings: append([]Mapping(nil), mappings...)}
}

// Resolve returns the first mapping whose label matches exactly.
func (d *Directory) Resolve(label string) (Mapping, error) {
	m, ok := lo.Find(d.mappings, func(m Mapping) bool { return m.Label == label })
	if !ok {
		return Mapping{}, fmt.Errorf("%w: %q", ErrUnknownCategory, label)
	}
	return m, nil
}

// IsAnonymous reports whether submissions to label must drop submitter identity.
func (d *Directory) IsAnonymous(label string) bool {
	if label == AnonymousFeedback {
		return true
	}
	m, err := d.Resolve(label)
	return err == nil && m.Anonymous
}

func (d *Directory) Labels() []string {
	return lo.Uniq(lo.Map(d.mappings, func(m Mapping, _ int) string { return m.Label }))
}

func (d *Directory) Mappings() []Mapping {
	return append([]Mapping(nil), d.mappings...)
}

// Duplicates lists labels that appear more than once. Only the first
// occurrence of each is reachable through Resolve.
func (d *Directory) Duplicates() []string {
	labels := lo.Map(d.mappings, func(m Mapping, _ int) string { return m.Label })
	return lo.FindDuplicates(labels)
}

type file struct {
	Categories []Mapping `yaml:"categories"`
}

// LoadFile reads a YAML directory of the form
//
//	categories:
//	  - label: General Inquiry
//	    recipient_name: Office Staff
//	    email: office@example.org
func LoadFile(path string) (*Directory, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read category file: %w", err)
	}
	return Parse(b)
}

func Parse(b []byte) (*Directory, error) {
	var f file
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse category file: %w", err)
	}
	if len(f.Categories) == 0 {
		return nil, errors.New("category file has no categories")
	}
	for i, m := range f.Categories {
		if m.Label == "" || m.Email == "" {
			return nil, fmt.Errorf("category %d: label and email are required", i)
		}
	}
	return New(f.Categories), nil
}
