package setup

import "github.com/tildaslashalef/oplink/internal/wizard"

type (
	// saveDoneMsg is sent when a step save returns
	saveDoneMsg struct {
		step wizard.StepID
		err  error
	}
)
