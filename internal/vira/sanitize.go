package vira

import (
	"encoding/json"
	"io"
	"log/slog"

	"github.com/peorobertsson/vira/internal/jira"
)

// FieldConfig lists the tracker fields that need special handling when an
// issue is copied. The defaults match the VIRA Jira instance.
type FieldConfig struct {
	// NotCopyable fields are removed before create: read-only timestamps,
	// computed estimates, status, links and organisation-specific fields.
	NotCopyable []string
	// FeatureName is set to the summary when a Feature is created.
	FeatureName string
	// CapabilityLink holds the parent Capability key of a Feature.
	CapabilityLink string
	// SubtaskNotSettable fields are rejected by the server when creating a sub-task.
	SubtaskNotSettable []string
	// MultiValue fields keep single-element arrays as arrays.
	MultiValue []string
}

// DefaultFieldConfig returns the field configuration of the VIRA instance.
func DefaultFieldConfig() FieldConfig {
	return FieldConfig{
		NotCopyable: []string{
			"lastViewed", "creator", "customfield_15100", "subtasks", "created",
			"timeoriginalestimate", "customfield_14301", "customfield_16500",
			"customfield_16301", "customfield_15822", "customfield_13304",
			"customfield_10700", "customfield_15002", "security",
			"aggregatetimeoriginalestimate", "timeestimate", "aggregatetimeestimate",
			"customfield_12803", "customfield_10703", "customfield_10705",
			"customfield_11103", "workratio", "issuelinks", "resolution",
			"resolutiondate", "updated", "parent", "status", "fixVersions",
		},
		FeatureName:        "customfield_10704",
		CapabilityLink:     "customfield_13801",
		SubtaskNotSettable: []string{"reporter", "customfield_13802", "customfield_13803"},
		MultiValue:         []string{"labels"},
	}
}

// FieldKind says how a field value is turned into a create-ready value.
type FieldKind int

const (
	FieldKindUnknown FieldKind = iota
	FieldKindScalar            // passed through
	FieldKindID                // reduced to {"id": ...}
	FieldKindName              // reduced to {"name": ...}
	FieldKindKey               // reduced to {"key": ...}
	FieldKindCascade           // reduced to {"id": ..., "child": {"id": ...}}
	FieldKindDropped           // removed, cannot be set on create
)

func (k FieldKind) String() string {
	switch k {
	case FieldKindScalar:
		return "scalar"
	case FieldKindID:
		return "id"
	case FieldKindName:
		return "name"
	case FieldKindKey:
		return "key"
	case FieldKindCascade:
		return "cascade"
	case FieldKindDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// schemaKinds maps Jira schema types to their FieldKind.
var schemaKinds = map[string]FieldKind{
	"string":   FieldKindScalar,
	"number":   FieldKindScalar,
	"date":     FieldKindScalar,
	"datetime": FieldKindScalar,

	"version":       FieldKindID,
	"option":        FieldKindID,
	"status":        FieldKindID,
	"issuetype":     FieldKindID,
	"securitylevel": FieldKindID,
	"issuelinks":    FieldKindID,
	"issuelink":     FieldKindID,
	"issue":         FieldKindID,
	"component":     FieldKindID,

	"option-with-child": FieldKindCascade,

	"priority":   FieldKindName,
	"user":       FieldKindName,
	"group":      FieldKindName,
	"resolution": FieldKindName,

	"project": FieldKindKey,

	"watches":       FieldKindDropped,
	"votes":         FieldKindDropped,
	"timetracking":  FieldKindDropped,
	"progress":      FieldKindDropped,
	"worklog":       FieldKindDropped,
	"comments-page": FieldKindDropped,
	"attachment":    FieldKindDropped,
}

// KindOf returns the FieldKind for a field schema. Arrays use their item type.
func KindOf(schema jira.FieldSchema) FieldKind {
	t := schema.Type
	if t == "array" {
		t = schema.Items
	}
	return schemaKinds[t]
}

// Sanitizer turns the fields of an existing issue into fields that can be
// sent to create a copy.
type Sanitizer struct {
	cfg        FieldConfig
	log        *slog.Logger
	multiValue map[string]bool
}

// NewSanitizer creates a Sanitizer. A nil logger discards warnings.
func NewSanitizer(cfg FieldConfig, log *slog.Logger) *Sanitizer {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	mv := make(map[string]bool, len(cfg.MultiValue))
	for _, f := range cfg.MultiValue {
		mv[f] = true
	}
	return &Sanitizer{cfg: cfg, log: log, multiValue: mv}
}

// Sanitize builds the create fields for a copy of src with the given summary.
// parent is required when src is a sub-task.
func (s *Sanitizer) Sanitize(src *Issue, summary string, parent *Issue) (map[string]interface{}, error) {
	if src.IsSubtask() && parent == nil {
		return nil, newError(KindParentRequired,
			"parent required when creating a sub-task: %s", src.ShortString())
	}

	raw, err := src.Raw().DecodeFields()
	if err != nil {
		return nil, wrapError(KindCreate, err, "failed to read fields of %s", src.Key())
	}

	for _, name := range s.cfg.NotCopyable {
		delete(raw, name)
	}

	fields := make(map[string]interface{}, len(raw))
	for name, value := range raw {
		kind := KindOf(src.Raw().Schema[name])
		if v, ok := s.convert(name, kind, value); ok {
			fields[name] = v
		}
	}

	fields["summary"] = summary
	if src.IsFeature() && s.cfg.FeatureName != "" {
		fields[s.cfg.FeatureName] = summary
	}

	if src.IsSubtask() {
		fields["parent"] = map[string]interface{}{"key": parent.Key()}
		for _, name := range s.cfg.SubtaskNotSettable {
			delete(fields, name)
		}
	}

	return fields, nil
}

// convert reduces one field value. The second result is false when the
// field should be left out.
func (s *Sanitizer) convert(name string, kind FieldKind, value interface{}) (interface{}, bool) {
	if value == nil || kind == FieldKindDropped {
		return nil, false
	}

	switch v := value.(type) {
	case string, json.Number, bool, float64:
		return v, true

	case []interface{}:
		if len(v) == 0 {
			return nil, false
		}
		if len(v) == 1 && isPrimitive(v[0]) && !s.multiValue[name] {
			return v[0], true
		}
		out := make([]interface{}, 0, len(v))
		for _, elem := range v {
			if c, ok := s.convert(name, kind, elem); ok {
				out = append(out, c)
			}
		}
		if len(out) == 0 {
			return nil, false
		}
		return out, true

	case map[string]interface{}:
		return s.reduce(name, kind, v), true

	default:
		s.log.Warn("unhandled field value, copying as is", "field", name, "kind", kind.String())
		return value, true
	}
}

func (s *Sanitizer) reduce(name string, kind FieldKind, m map[string]interface{}) interface{} {
	var key string
	switch kind {
	case FieldKindID, FieldKindCascade:
		key = "id"
	case FieldKindName:
		key = "name"
	case FieldKindKey:
		key = "key"
	default:
		s.log.Warn("unhandled field kind, copying as is", "field", name, "kind", kind.String())
		return m
	}

	id, ok := m[key]
	if !ok || id == nil {
		s.log.Warn("field value lacks identifier, copying as is",
			"field", name, "kind", kind.String(), "want", key)
		return m
	}
	out := map[string]interface{}{key: id}
	if kind == FieldKindCascade {
		if child, ok := m["child"].(map[string]interface{}); ok && child["id"] != nil {
			out["child"] = map[string]interface{}{"id": child["id"]}
		}
	}
	return out
}

func isPrimitive(v interface{}) bool {
	switch v.(type) {
	case string, json.Number, bool, float64:
		return true
	}
	return false
}
