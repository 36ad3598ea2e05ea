// Package options reads and writes the line-oriented license options
// grammar: idle timeouts, named groups and seat-distribution rules.
package options

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/license-insight/backend/internal/models"
)

// swVersionPrefix is the suffix marker splitting a feature token into
// feature and version filter, e.g. "solidworks:SWVERSION=2024".
const swVersionPrefix = ":SWVERSION="

// ImportResult is the outcome of parsing an options file. ReferencedUsers
// lists every user identifier mentioned by a group or a USER-targeted rule;
// the caller diffs it against the log's known users to mark custom entries.
type ImportResult struct {
	Model           *models.OptionsModel
	ReferencedUsers []string
}

// Export renders the model as options-file text. The output order is
// deterministic: header, global timeout, per-feature timeouts, non-empty
// groups, rules.
func Export(m *models.OptionsModel) string {
	var b strings.Builder

	b.WriteString("# License options file\n")
	b.WriteString("# Generated by License Log Insight\n\n")

	if m.GlobalTimeout.Enabled {
		fmt.Fprintf(&b, "TIMEOUTALL %d\n", m.GlobalTimeout.Seconds)
	} else {
		b.WriteString("# No global idle timeout configured\n")
	}

	for _, ft := range m.FeatureTimeouts {
		fmt.Fprintf(&b, "TIMEOUT %s %d\n", ft.Feature, ft.Seconds)
	}

	for _, g := range m.Groups {
		if len(g.Members) == 0 {
			continue
		}
		fmt.Fprintf(&b, "GROUP %s %s\n", g.Name, strings.Join(g.Members, " "))
	}

	for _, r := range m.Rules {
		b.WriteString(renderRule(r))
		b.WriteByte('\n')
	}

	return b.String()
}

func renderRule(r models.Rule) string {
	feature := r.Feature
	if r.Version != "" {
		feature += swVersionPrefix + r.Version
	}
	switch r.Kind {
	case models.RuleCap, models.RuleReserve:
		return fmt.Sprintf("%s %d %s %s %s", r.Kind, r.Count, feature, r.TargetKind, r.Target)
	default:
		return fmt.Sprintf("%s %s %s %s", r.Kind, feature, r.TargetKind, r.Target)
	}
}

// Import parses options-file text into a model. Comment lines, blank lines
// and unrecognized directives are ignored, so files containing foreign
// directives degrade to a partial model instead of failing.
func Import(text string) *ImportResult {
	model := models.NewOptionsModel()
	referenced := make(map[string]struct{})

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimRight(line, "\r"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		tokens := strings.Fields(line)
		directive := strings.ToUpper(tokens[0])

		switch directive {
		case "TIMEOUTALL":
			if len(tokens) >= 2 {
				if secs, err := strconv.Atoi(tokens[1]); err == nil {
					model.GlobalTimeout = models.GlobalTimeout{Enabled: true, Seconds: secs}
				}
			}
		case "TIMEOUT":
			if len(tokens) >= 3 {
				if secs, err := strconv.Atoi(tokens[2]); err == nil {
					model.FeatureTimeouts = append(model.FeatureTimeouts, models.FeatureTimeout{
						Feature: tokens[1],
						Seconds: secs,
					})
				}
			}
		case "GROUP":
			if len(tokens) >= 2 {
				members := tokens[2:]
				model.Groups = append(model.Groups, models.Group{
					Name:    tokens[1],
					Members: append([]string{}, members...),
				})
				for _, m := range members {
					referenced[m] = struct{}{}
				}
			}
		case "CAP", "RESERVE":
			if rule, ok := parseCountedRule(directive, tokens); ok {
				model.Rules = append(model.Rules, rule)
				if rule.TargetKind == models.TargetUser {
					referenced[rule.Target] = struct{}{}
				}
			}
		case "INCLUDE", "EXCLUDE", "INCLUDE_BORROW", "EXCLUDE_BORROW":
			if rule, ok := parseAccessRule(directive, tokens); ok {
				model.Rules = append(model.Rules, rule)
				if rule.TargetKind == models.TargetUser {
					referenced[rule.Target] = struct{}{}
				}
			}
		}
	}

	users := make([]string, 0, len(referenced))
	for u := range referenced {
		users = append(users, u)
	}
	sort.Strings(users)

	return &ImportResult{Model: model, ReferencedUsers: users}
}

// parseCountedRule parses "<KIND> <count> <feature> <targetKind> <target>".
// CAP and RESERVE always carry a positive seat count.
func parseCountedRule(directive string, tokens []string) (models.Rule, bool) {
	if len(tokens) < 5 {
		return models.Rule{}, false
	}
	count, err := strconv.Atoi(tokens[1])
	if err != nil || count <= 0 {
		return models.Rule{}, false
	}
	targetKind, ok := parseTargetKind(tokens[3])
	if !ok {
		return models.Rule{}, false
	}
	feature, version := splitFeatureVersion(tokens[2])
	return models.Rule{
		Kind:       models.RuleKind(directive),
		Count:      count,
		Feature:    feature,
		Version:    version,
		TargetKind: targetKind,
		Target:     tokens[4],
	}, true
}

// parseAccessRule parses "<KIND> <feature> <targetKind> <target>".
func parseAccessRule(directive string, tokens []string) (models.Rule, bool) {
	if len(tokens) < 4 {
		return models.Rule{}, false
	}
	targetKind, ok := parseTargetKind(tokens[2])
	if !ok {
		return models.Rule{}, false
	}
	feature, version := splitFeatureVersion(tokens[1])
	return models.Rule{
		Kind:       models.RuleKind(directive),
		Feature:    feature,
		Version:    version,
		TargetKind: targetKind,
		Target:     tokens[3],
	}, true
}

func parseTargetKind(token string) (models.TargetKind, bool) {
	switch models.TargetKind(strings.ToUpper(token)) {
	case models.TargetGroup:
		return models.TargetGroup, true
	case models.TargetUser:
		return models.TargetUser, true
	case models.TargetHost:
		return models.TargetHost, true
	case models.TargetSubnet:
		return models.TargetSubnet, true
	}
	return "", false
}

func splitFeatureVersion(token string) (feature, version string) {
	if idx := strings.Index(token, swVersionPrefix); idx >= 0 {
		return token[:idx], token[idx+len(swVersionPrefix):]
	}
	return token, ""
}
