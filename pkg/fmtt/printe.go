// Package fmtt prints error chains for sshp's fatal-error exit path,
// where whatever lands on stderr before the process exits is all an
// operator gets.
package fmtt

import (
	"errors"
	"fmt"
	"os"
	"reflect"

	"github.com/davecgh/go-spew/spew"
)

// PrintErrChain walks err's Unwrap chain and prints each layer with its
// type, most specific first. This is the default rendering for a fatal
// apperror.Engine reaching main.
func PrintErrChain(err error) {
	if err == nil {
		fmt.Fprintln(os.Stderr, "<nil>")
		return
	}

	i := 0
	for e := err; e != nil; e = errors.Unwrap(e) {
		fmt.Fprintf(os.Stderr, "[%d] %T: %v\n", i, e, e)
		i++
	}
}

// PrintErrChainDebug is PrintErrChain's -d/--debug counterpart: a spew
// dump and field-by-field reflection of every layer, for diagnosing an
// engine failure that doesn't explain itself from Error() text alone
// (a bad epoll_ctl argument, an unexpected exec error).
func PrintErrChainDebug(err error) {
	for i := 0; err != nil; err = errors.Unwrap(err) {
		fmt.Fprintf(os.Stderr, "[%d] %T\n", i, err)
		fmt.Fprintf(os.Stderr, "   Error(): %v\n", err)

		spew.Fdump(os.Stderr, err)

		rv := reflect.ValueOf(err)
		rt := reflect.TypeOf(err)
		if rt.Kind() == reflect.Ptr {
			rv = rv.Elem()
			rt = rt.Elem()
		}
		if rt.Kind() == reflect.Struct {
			for j := 0; j < rt.NumField(); j++ {
				f := rt.Field(j)
				v := rv.Field(j)
				if v.CanInterface() {
					fmt.Fprintf(os.Stderr, "   field %s (%s): %+v\n", f.Name, f.Type, v.Interface())
				}
			}
		}

		i++
	}
}
