package synth

import "github.com/sells-group/guarded-chat/internal/model"

// Fallback composes the reply used when synthesis is unavailable. When the
// assessment carries a fabrication warning it leads the message and the
// assistant's answer is offered as a general approach.
func Fallback(answer string, a model.GuardrailAssessment) string {
	if a.FabricationWarning == nil {
		return answer
	}
	return *a.FabricationWarning + "\n\nI can outline a general approach:\n" + answer
}
