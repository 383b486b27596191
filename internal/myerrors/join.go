package myerrors

import "errors"

// Join is like errors.Join, but returns a lone non-nil error unwrapped so its
// message is not prefixed or split across lines.
func Join(errs ...error) error {
	nonNil := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			nonNil = append(nonNil, err)
		}
	}
	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	default:
		return errors.Join(nonNil...)
	}
}
