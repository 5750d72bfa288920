// Package yamledit overlays replacement values onto a parsed YAML document.
//
// An overlay mirrors the shape of the source: every mapping key and sequence
// index it names must exist in the source, and only scalar leaves are
// replaced. A mismatch reports the failing graph path, for example
// "realms:[0]:name".
package yamledit

import (
	"errors"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ErrGraphMismatch is returned when the overlay does not match the source.
var ErrGraphMismatch = errors.New("overlay does not match source YAML")

// MismatchError names the overlay path that has no counterpart in the source.
type MismatchError struct {
	Path string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("yamledit: failing graph %s: %v", e.Path, ErrGraphMismatch)
}

func (e *MismatchError) Unwrap() error { return ErrGraphMismatch }

// FindAndReplace walks overlay and src together and replaces each scalar of
// src with the overlay's scalar at the same path.
func FindAndReplace(src, overlay *yaml.Node) error {
	if path, ok := replace(unwrap(src), unwrap(overlay)); !ok {
		return &MismatchError{Path: path}
	}
	return nil
}

// ReplaceValue encodes overlay (typically a map decoded from another
// document) and applies it to src.
func ReplaceValue(src *yaml.Node, overlay any) error {
	var n yaml.Node
	if err := n.Encode(overlay); err != nil {
		return fmt.Errorf("yamledit: encode overlay: %w", err)
	}
	return FindAndReplace(src, &n)
}

// replace returns the failing path and false on mismatch.
func replace(src, key *yaml.Node) (string, bool) {
	switch key.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(key.Content); i += 2 {
			k := key.Content[i].Value
			child := lookup(src, k)
			if child == nil {
				return k, false
			}
			if path, ok := replace(child, key.Content[i+1]); !ok {
				return k + ":" + path, false
			}
		}
	case yaml.SequenceNode:
		for i, item := range key.Content {
			idx := "[" + strconv.Itoa(i) + "]"
			if src == nil || src.Kind != yaml.SequenceNode || i >= len(src.Content) {
				return idx, false
			}
			if path, ok := replace(src.Content[i], item); !ok {
				return idx + ":" + path, false
			}
		}
	case yaml.ScalarNode:
		if src == nil || src.Kind != yaml.ScalarNode {
			return key.Value, false
		}
		src.Value = key.Value
		src.Tag = key.Tag
		src.Style = key.Style
	}
	return "", true
}

func lookup(m *yaml.Node, key string) *yaml.Node {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func unwrap(n *yaml.Node) *yaml.Node {
	if n != nil && n.Kind == yaml.DocumentNode && len(n.Content) > 0 {
		return n.Content[0]
	}
	return n
}
