// Package apperr defines the error taxonomy shared by codelists, mappings and
// region processing.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound = errors.New("not found")

	// Schema errors.
	ErrUnknownCode   = errors.New("unknown code")
	ErrDuplicateCode = errors.New("duplicate code")
	ErrInvalidCode   = errors.New("invalid code")
	ErrWrongUnit     = errors.New("wrong unit")

	// Mapping errors.
	ErrEmptyMapping          = errors.New("empty mapping")
	ErrUndefinedConstituent  = errors.New("undefined constituent")
	ErrUnmappedRegion        = errors.New("unmapped region")
	ErrRegionNameCollision   = errors.New("region name collision")
	ErrExcludeOverlap        = errors.New("exclude region overlap")
	ErrModelMappingCollision = errors.New("model mapping collision")

	// Config errors.
	ErrNoMappingForModel = errors.New("no mapping for model")

	// Validation errors.
	ErrUndefinedRegion = errors.New("undefined region")
)

// Kind names the specific failure inside an error category.
type Kind string

const (
	KindUnknownCode          Kind = "UnknownCode"
	KindDuplicateCode        Kind = "DuplicateCode"
	KindInvalidCode          Kind = "InvalidCode"
	KindWrongUnit            Kind = "WrongUnit"
	KindEmptyMapping         Kind = "EmptyMapping"
	KindUndefinedConstituent Kind = "UndefinedConstituent"
	KindUnmappedRegion       Kind = "UnmappedRegion"
	KindRegionNameCollision  Kind = "RegionNameCollision"
	KindExcludeOverlap       Kind = "ExcludeOverlap"
	KindModelMappingConflict Kind = "ModelMappingCollision"
	KindNoMappingForModel    Kind = "NoMappingForModel"
	KindUndefinedRegion      Kind = "UndefinedRegion"
)

var sentinels = map[Kind]error{
	KindUnknownCode:          ErrUnknownCode,
	KindDuplicateCode:        ErrDuplicateCode,
	KindInvalidCode:          ErrInvalidCode,
	KindWrongUnit:            ErrWrongUnit,
	KindEmptyMapping:         ErrEmptyMapping,
	KindUndefinedConstituent: ErrUndefinedConstituent,
	KindUnmappedRegion:       ErrUnmappedRegion,
	KindRegionNameCollision:  ErrRegionNameCollision,
	KindExcludeOverlap:       ErrExcludeOverlap,
	KindModelMappingConflict: ErrModelMappingCollision,
	KindNoMappingForModel:    ErrNoMappingForModel,
	KindUndefinedRegion:      ErrUndefinedRegion,
}

// SchemaError reports data or configuration that does not match a codelist.
type SchemaError struct {
	Kind      Kind
	Dimension string
	Codes     []string
	Detail    string
}

func (e *SchemaError) Error() string {
	msg := fmt.Sprintf("schema error (%s): %s %s", e.Kind, e.Dimension, quoteList(e.Codes))
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *SchemaError) Unwrap() error { return sentinels[e.Kind] }

// MappingError reports a malformed or incomplete model mapping.
type MappingError struct {
	Kind    Kind
	Model   string
	File    string
	Regions []string
	Detail  string
}

func (e *MappingError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "mapping error (%s)", e.Kind)
	if e.Model != "" {
		fmt.Fprintf(&b, " for model %q", e.Model)
	}
	if len(e.Regions) > 0 {
		fmt.Fprintf(&b, ": %s", quoteList(e.Regions))
	}
	if e.Detail != "" {
		fmt.Fprintf(&b, ": %s", e.Detail)
	}
	if e.File != "" {
		fmt.Fprintf(&b, " in %s", e.File)
	}
	return b.String()
}

func (e *MappingError) Unwrap() error { return sentinels[e.Kind] }

// ConfigError is informational; callers usually resolve it by pass-through.
type ConfigError struct {
	Kind  Kind
	Model string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error (%s): %q", e.Kind, e.Model)
}

func (e *ConfigError) Unwrap() error { return sentinels[e.Kind] }

// ValidationError reports mapping output names missing from the region codelist.
type ValidationError struct {
	Kind    Kind
	File    string
	Regions []string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("validation error (%s): region(s) %s not found in region codelist", e.Kind, quoteList(e.Regions))
	if e.File != "" {
		msg += " in " + e.File
	}
	return msg
}

func (e *ValidationError) Unwrap() error { return sentinels[e.Kind] }

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
