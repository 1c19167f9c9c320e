package format

import "github.com/AkaraChen/fama/backend"

type Status uint8

const (
	// StatusUnchanged covers byte-identical output, unsupported types and
	// files skipped because their backend is unavailable.
	StatusUnchanged Status = iota
	StatusFormatted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusFormatted:
		return "formatted"
	case StatusFailed:
		return "failed"
	default:
		return "unchanged"
	}
}

// Outcome is the per-file result of a dispatch.
type Outcome struct {
	Path   string
	Status Status

	// Text holds the formatted content when Status is StatusFormatted.
	Text string

	// Kind and Message describe the failure when Status is StatusFailed.
	Kind    backend.Kind
	Message string
}

func unchanged(path string) Outcome {
	return Outcome{Path: path, Status: StatusUnchanged}
}

func formatted(path, text string) Outcome {
	return Outcome{Path: path, Status: StatusFormatted, Text: text}
}

func failed(path string, kind backend.Kind, message string) Outcome {
	return Outcome{Path: path, Status: StatusFailed, Kind: kind, Message: message}
}
