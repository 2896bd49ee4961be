package cli

import (
	"fmt"
	"io"

	tallyerrors "github.com/randalmurphal/tally/internal/errors"
)

// PrintError prints an error to w with appropriate formatting.
// If the error is a TallyError, it uses the user-friendly format.
// Otherwise, it prints a simple error message.
func PrintError(w io.Writer, err error) {
	if te := tallyerrors.AsTallyError(err); te != nil {
		fmt.Fprintln(w, te.UserMessage())
		if verbose {
			// In verbose mode, also print the error code and cause
			fmt.Fprintf(w, "\nCode: %s\n", te.Code)
			if te.Cause != nil {
				fmt.Fprintf(w, "Cause: %v\n", te.Cause)
			}
		}
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}
