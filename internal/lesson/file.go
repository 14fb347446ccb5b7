package lesson

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk shape of a lesson: a list of sentence pairs.
// JSON documents are accepted too since they are valid YAML.
type File struct {
	Title     string         `yaml:"title,omitempty"`
	Sentences []SentencePair `yaml:"sentences"`
}

// ReadPairs decodes sentence pairs from r. Both a bare list of pairs and a
// File document with a "sentences" key are accepted.
func ReadPairs(r io.Reader) ([]SentencePair, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to read lesson: %w", err)
	}

	var node yaml.Node
	if err := yaml.Unmarshal(b, &node); err != nil {
		return nil, fmt.Errorf("unable to parse lesson: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	if node.Content[0].Kind == yaml.SequenceNode {
		var pairs []SentencePair
		if err := node.Content[0].Decode(&pairs); err != nil {
			return nil, fmt.Errorf("unable to decode sentence pairs: %w", err)
		}
		return pairs, nil
	}

	var f File
	if err := node.Content[0].Decode(&f); err != nil {
		return nil, fmt.Errorf("unable to decode lesson file: %w", err)
	}
	return f.Sentences, nil
}

// LoadPairs reads sentence pairs from the file at path.
func LoadPairs(path string) ([]SentencePair, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open lesson: %w", err)
	}
	defer f.Close() //nolint:errcheck
	return ReadPairs(f)
}
