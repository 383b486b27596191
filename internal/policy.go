package internal

import "strings"

const (
	errorSuffix  = "_error"
	ignoreSuffix = "_ignore"

	decryptedPrefix     = "decrypted_"
	cannotDecryptPrefix = "cannot decrypt "
)

type ResultKind int

const (
	Success ResultKind = iota
	Failure
	Ignored
)

func (k ResultKind) String() string {
	switch k {
	case Success:
		return "success"
	case Failure:
		return "failure"
	case Ignored:
		return "ignored"
	default:
		return "unknown"
	}
}

// Result is the outcome of decrypting a single handle.
// Value is set for Success and Error for Failure.
type Result struct {
	Kind  ResultKind
	Value string
	Error string
}

// Decide maps a handle to its result by suffix. The _error suffix is checked
// before _ignore.
func Decide(handle string) Result {
	switch {
	case strings.HasSuffix(handle, errorSuffix):
		return Result{Kind: Failure, Error: cannotDecryptPrefix + handle}
	case strings.HasSuffix(handle, ignoreSuffix):
		return Result{Kind: Ignored}
	default:
		return Result{Kind: Success, Value: decryptedPrefix + handle}
	}
}

// Record converts r to its wire form. ok is false for Ignored.
func (r Result) Record() (rec Record, ok bool) {
	switch r.Kind {
	case Success:
		return Record{Value: r.Value}, true
	case Failure:
		return Record{Value: "", Error: r.Error}, true
	default:
		return Record{}, false
	}
}
