package service

import (
	"fmt"
	"strings"
)

// fixationFields are the facts every valid fixation block must carry, in
// listing order.
var fixationFields = []string{
	"run_id",
	"evia_cost_45_days",
	"evia_decision",
	"project_name",
	"company_name",
	"goals",
	"problem_statement",
}

// FixationKey labels the fixation block inside stage 5 metadata.
const FixationKey = "(10) БЛОК ФИКСАЦИИ"

// OutputInvalid is the terminal text when fixation validation fails.
const OutputInvalid = "OUTPUT INVALID"

// BuildFixation assembles the canonical fact snapshot for a run from the
// run id, the cost literal, the decision, and four fields copied from the
// sanitized intake. Built once after the main stage loop; the terminal
// stage copies from this block, never from the intake.
func (s *Settings) BuildFixation(runID string, intake map[string]any, decision string) map[string]string {
	return map[string]string{
		"run_id":            runID,
		"evia_cost_45_days": s.CostLiteral,
		"evia_decision":     decision,
		"project_name":      s.intakeString(intake, "project_name"),
		"company_name":      s.intakeString(intake, "company_name"),
		"goals":             s.intakeString(intake, "goals"),
		"problem_statement": s.intakeString(intake, "problem_statement"),
	}
}

func (s *Settings) intakeString(intake map[string]any, field string) string {
	v, ok := intake[field]
	if !ok {
		return s.Missing
	}
	if str, ok := v.(string); ok {
		return str
	}
	return fmt.Sprintf("%v", v)
}

// MissingFixationFields returns required fields absent from the block.
// By construction BuildFixation always fills them; this is the last line
// of defense against a block assembled elsewhere.
func MissingFixationFields(fixation map[string]string) []string {
	var missing []string
	for _, field := range fixationFields {
		if _, ok := fixation[field]; !ok {
			missing = append(missing, field)
		}
	}
	return missing
}

// CopyFixation extracts the required fields into a fresh map.
func CopyFixation(fixation map[string]string) map[string]string {
	copied := make(map[string]string, len(fixationFields))
	for _, field := range fixationFields {
		copied[field] = fixation[field]
	}
	return copied
}

// FixationListing renders the block as "key: value" lines in field order.
func FixationListing(fixation map[string]string) string {
	lines := make([]string, 0, len(fixationFields))
	for _, field := range fixationFields {
		lines = append(lines, field+": "+fixation[field])
	}
	return strings.Join(lines, "\n")
}

// FinalReport reproduces the copied fixation facts byte for byte as the
// terminal stage text.
func FinalReport(copied map[string]string, status string) string {
	return fmt.Sprintf("Финальный результат EVIA R&D\n\n"+
		"status: %s\n"+
		"run_id: %s\n"+
		"project_name: %s\n"+
		"company_name: %s\n"+
		"goals: %s\n"+
		"problem_statement: %s\n"+
		"evia_decision: %s\n"+
		"evia_cost_45_days: %s",
		status,
		copied["run_id"],
		copied["project_name"],
		copied["company_name"],
		copied["goals"],
		copied["problem_statement"],
		copied["evia_decision"],
		copied["evia_cost_45_days"])
}
