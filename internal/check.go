package internal

import (
	"fmt"

	"github.com/hnakamur/mockdecrypt/internal/myerrors"
)

// Check reports every handle in handles that is missing from res or carries an
// error. It returns nil when all of them were decrypted.
func Check(handles []string, res *Response) error {
	var errs []error
	for _, handle := range handles {
		rec, ok := res.Get(handle)
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("secret %s was not returned by the backend", handle))
		case rec.Failed():
			errs = append(errs, fmt.Errorf("secret %s: %s", handle, rec.Error))
		}
	}
	return myerrors.Join(errs...)
}
