package entity

type Outcome string

const (
	OutcomeSucceeded Outcome = "SUCCEEDED"
	OutcomeFailed    Outcome = "FAILED"
)

// ProcessResult is the per-video verdict produced by the video processor.
// A failed video may still have staged frames: FramesWritten counts whatever
// was staged before the failure (partial output is kept and published).
type ProcessResult struct {
	Video         VideoRef
	Outcome       Outcome
	FramesWritten int
	Reason        string
}

func Succeeded(video VideoRef, framesWritten int) ProcessResult {
	return ProcessResult{
		Video:         video,
		Outcome:       OutcomeSucceeded,
		FramesWritten: framesWritten,
	}
}

func Failed(video VideoRef, framesWritten int, reason string) ProcessResult {
	return ProcessResult{
		Video:         video,
		Outcome:       OutcomeFailed,
		FramesWritten: framesWritten,
		Reason:        reason,
	}
}
