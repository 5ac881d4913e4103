package link

import "github.com/tildaslashalef/oplink/internal/bulklink"

type (
	// ProgressMsg carries one resolved file from the orchestrator
	ProgressMsg bulklink.Progress

	// RunDoneMsg is sent when a link pass or retry returns
	RunDoneMsg struct {
		Job *bulklink.Job
		Err error
	}

	// eventsClosedMsg is sent when the progress channel is closed
	eventsClosedMsg struct{}
)
