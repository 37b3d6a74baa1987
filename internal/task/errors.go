package task

// BuildError fails the build. Msg is shown to the user, Err is the cause.
type BuildError struct {
	Msg string
	Err error
}

func (e *BuildError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "build failed"
}

func (e *BuildError) Unwrap() error { return e.Err }

func buildError(msg string) *BuildError {
	return &BuildError{Msg: msg}
}
