package models

// RuleKind is the directive kind of an options-file rule.
type RuleKind string

const (
	RuleCap           RuleKind = "CAP"
	RuleReserve       RuleKind = "RESERVE"
	RuleInclude       RuleKind = "INCLUDE"
	RuleExclude       RuleKind = "EXCLUDE"
	RuleIncludeBorrow RuleKind = "INCLUDE_BORROW"
	RuleExcludeBorrow RuleKind = "EXCLUDE_BORROW"
)

// TargetKind identifies what a rule's target refers to.
type TargetKind string

const (
	TargetGroup  TargetKind = "GROUP"
	TargetUser   TargetKind = "USER"
	TargetHost   TargetKind = "HOST"
	TargetSubnet TargetKind = "SUBNET"
)

// GlobalTimeout is the server-wide idle timeout directive.
type GlobalTimeout struct {
	Enabled bool `json:"enabled"`
	Seconds int  `json:"seconds"`
}

// FeatureTimeout overrides the idle timeout for a single feature.
type FeatureTimeout struct {
	Feature string `json:"feature"`
	Seconds int    `json:"seconds"`
}

// Group is a named, ordered set of member identifiers.
type Group struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

// Rule is one license-distribution policy rule. Count is meaningful only for
// CAP and RESERVE, where it is always a positive integer; other kinds ignore
// it. Version is the optional SWVERSION filter attached to the feature token.
type Rule struct {
	Kind       RuleKind   `json:"kind"`
	Count      int        `json:"count,omitempty"`
	Feature    string     `json:"feature"`
	Version    string     `json:"version,omitempty"`
	TargetKind TargetKind `json:"targetKind"`
	Target     string     `json:"target"`
}

// OptionsModel is the structured form of a license options file. It is
// mutated incrementally by user edits and serialized on demand, independent
// of any parsed log.
type OptionsModel struct {
	GlobalTimeout   GlobalTimeout    `json:"globalTimeout"`
	FeatureTimeouts []FeatureTimeout `json:"featureTimeouts"`
	Groups          []Group          `json:"groups"`
	Rules           []Rule           `json:"rules"`
}

// NewOptionsModel returns an empty options model.
func NewOptionsModel() *OptionsModel {
	return &OptionsModel{
		FeatureTimeouts: make([]FeatureTimeout, 0),
		Groups:          make([]Group, 0),
		Rules:           make([]Rule, 0),
	}
}
