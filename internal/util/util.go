// Package util provides auxiliary functions internally used in webrtc package
package util

import (
	"strings"

	"github.com/pion/randutil"
)

const randSeqAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
const randDigitsAlphabet = "0123456789"

// RandSeq generates a random sequence of ASCII letters of the requested
// length, drawn through GenerateCryptoRandomString.
func RandSeq(n int) string {
	val, err := randutil.GenerateCryptoRandomString(n, randSeqAlphabet)
	if err != nil {
		// randutil only fails this call on a broken crypto/rand source,
		// which is unrecoverable for the process anyway.
		panic(err)
	}
	return val
}

// RandDigits generates a random numeric string of the requested length,
// used for SDP o= session ids.
func RandDigits(n int) string {
	val, err := randutil.GenerateCryptoRandomString(n, randDigitsAlphabet)
	if err != nil {
		panic(err)
	}
	return val
}

// FlattenErrs flattens multiple errors into one
func FlattenErrs(errs []error) error {
	errs2 := []error{}
	for _, e := range errs {
		if e != nil {
			errs2 = append(errs2, e)
		}
	}
	if len(errs2) == 0 {
		return nil
	}
	return multiError(errs2)
}

type multiError []error

func (me multiError) Error() string {
	var errstrings []string

	for _, err := range me {
		if err != nil {
			errstrings = append(errstrings, err.Error())
		}
	}

	if len(errstrings) == 0 {
		return "multiError must contain multiple error but is empty"
	}

	return strings.Join(errstrings, "\n")
}

func (me multiError) Is(err error) bool {
	for _, e := range me {
		if e == err {
			return true
		}
		if me2, ok := e.(multiError); ok {
			if me2.Is(err) {
				return true
			}
		}
	}
	return false
}
