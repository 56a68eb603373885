package entity

import "errors"

// Error taxonomy for the extraction pipeline. Per-video errors
// (ErrUnreadableVideo, ErrDecode) are recorded as failed outcomes and never
// abort the worker run; ErrConfiguration and ErrPublish are fatal for the run.
var (
	ErrConfiguration   = errors.New("invalid worker configuration")
	ErrUnreadableVideo = errors.New("unreadable video container")
	ErrDecode          = errors.New("frame decode failed")
	ErrPublish         = errors.New("publish to object storage failed")
)
