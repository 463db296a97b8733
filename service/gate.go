package service

import "fmt"

// requiredIntakeFields must be resolved before the pipeline proceeds
// past stage 0.
var requiredIntakeFields = []string{"project_name", "company_name", "goals", "problem_statement"}

// maxClarifications bounds the number of questions returned on a
// not-ready gate.
const maxClarifications = 7

// EvaluateGate decides pipeline readiness from the sanitized intake and
// collects one clarification question per missing required field, capped
// at maxClarifications. Pure and deterministic.
func (s *Settings) EvaluateGate(intake map[string]any) (string, []string) {
	var missing []string
	for _, field := range requiredIntakeFields {
		v, ok := intake[field]
		if !ok || v == any(s.Missing) {
			missing = append(missing, field)
		}
	}

	if len(missing) == 0 {
		return GateReady, []string{}
	}

	if len(missing) > maxClarifications {
		missing = missing[:maxClarifications]
	}
	questions := make([]string, len(missing))
	for i, field := range missing {
		questions[i] = fmt.Sprintf("Уточните поле '%s' для продолжения.", field)
	}
	return GateNotReady, questions
}
