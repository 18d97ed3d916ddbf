package db

import (
	"errors"
	"fmt"
	"strconv"
)

// DistanceMetric is the DISTANCE_METRIC of a vector field.
type DistanceMetric string

// Supported distance metrics.
const (
	DistanceCosine DistanceMetric = "COSINE"
	DistanceIP     DistanceMetric = "IP"
	DistanceL2     DistanceMetric = "L2"
)

// VectorAlgorithm selects the vector index structure.
type VectorAlgorithm string

const (
	// VectorHNSW is the approximate graph index.
	VectorHNSW VectorAlgorithm = "HNSW"
	// VectorFlat is exact brute-force search.
	VectorFlat VectorAlgorithm = "FLAT"
)

// FieldKind is the schema type of an index field.
type FieldKind int

// Field kinds.
const (
	FieldTag FieldKind = iota + 1
	FieldNumeric
	FieldVector
)

// VectorOptions configures a VECTOR field. Vectors are always FLOAT32.
type VectorOptions struct {
	Algorithm   VectorAlgorithm // FLAT when empty
	Dim         int
	Distance    DistanceMetric // COSINE when empty
	M           int            // HNSW only, server default when 0
	EFConstruct int            // HNSW only, server default when 0
}

// IndexField is one attribute of the index SCHEMA.
type IndexField struct {
	Name          string
	Alias         string // queried as @Alias when set
	Kind          FieldKind
	CaseSensitive bool           // TAG
	Vector        *VectorOptions // VECTOR
}

// IndexDefinition describes an FT index over hashes sharing key prefixes.
type IndexDefinition struct {
	Name     string
	Prefixes []string
	Fields   []IndexField
}

// Validate checks the definition before it reaches the server.
func (idx *IndexDefinition) Validate() error {
	if idx.Name == "" {
		return errors.New("index name is required")
	}
	if !IsValidIdentifier(idx.Name) {
		return fmt.Errorf("index name %q contains invalid characters", idx.Name)
	}
	if len(idx.Fields) == 0 {
		return errors.New("at least one field is required")
	}

	seen := make(map[string]struct{}, len(idx.Fields))
	for i := range idx.Fields {
		f := &idx.Fields[i]
		if f.Name == "" {
			return fmt.Errorf("field %d: name is required", i)
		}
		attr := f.attribute()
		if _, dup := seen[attr]; dup {
			return fmt.Errorf("duplicate field name: %s", attr)
		}
		seen[attr] = struct{}{}

		if f.Kind == FieldVector && (f.Vector == nil || f.Vector.Dim <= 0) {
			return fmt.Errorf("vector field %s requires positive DIM", f.Name)
		}
	}
	return nil
}

// Args renders the FT.CREATE arguments (without the command name).
func (idx *IndexDefinition) Args() ([]string, error) {
	if err := idx.Validate(); err != nil {
		return nil, err
	}

	args := []string{idx.Name, "ON", "HASH"}
	if n := len(idx.Prefixes); n > 0 {
		args = append(args, "PREFIX", strconv.Itoa(n))
		args = append(args, idx.Prefixes...)
	}
	args = append(args, "SCHEMA")

	for i := range idx.Fields {
		fa, err := idx.Fields[i].args()
		if err != nil {
			return nil, err
		}
		args = append(args, fa...)
	}
	return args, nil
}

func (f *IndexField) attribute() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

func (f *IndexField) args() ([]string, error) {
	out := []string{f.Name}
	if f.Alias != "" {
		out = append(out, "AS", f.Alias)
	}

	switch f.Kind {
	case FieldTag:
		out = append(out, "TAG")
		if f.CaseSensitive {
			out = append(out, "CASESENSITIVE")
		}
	case FieldNumeric:
		out = append(out, "NUMERIC")
	case FieldVector:
		if f.Vector == nil {
			return nil, fmt.Errorf("vector field %s has no options", f.Name)
		}
		out = append(out, f.Vector.args()...)
	default:
		return nil, fmt.Errorf("field %s: unknown kind %d", f.Name, f.Kind)
	}
	return out, nil
}

// args renders "VECTOR <algo> <n> <attr pairs...>".
func (v *VectorOptions) args() []string {
	algo := v.Algorithm
	if algo == "" {
		algo = VectorFlat
	}
	dist := v.Distance
	if dist == "" {
		dist = DistanceCosine
	}

	attrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(v.Dim),
		"DISTANCE_METRIC", string(dist),
	}
	if algo == VectorHNSW {
		if v.M > 0 {
			attrs = append(attrs, "M", strconv.Itoa(v.M))
		}
		if v.EFConstruct > 0 {
			attrs = append(attrs, "EF_CONSTRUCTION", strconv.Itoa(v.EFConstruct))
		}
	}
	return append([]string{"VECTOR", string(algo), strconv.Itoa(len(attrs))}, attrs...)
}

// IsValidIdentifier reports whether s is non-empty and made of [a-zA-Z0-9_:-].
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == ':', r == '-':
		default:
			return false
		}
	}
	return true
}
