// SPDX-License-Identifier: MIT
// Copyright Authors of Gibson

package cmd

import (
	"fmt"
	"io"
)

func printVersion(w io.Writer) {
	const fmat = "%-20s %s\n"

	printLogo(w)
	fmt.Fprintf(w, fmat, "Version:", version)
	fmt.Fprintf(w, fmat, "Commit:", commit)
	fmt.Fprintf(w, fmat, "Date:", date)
}

func printLogo(w io.Writer) {
	logo := `
                  _    _ _
  _ __ ___  _ __ | | _(_) |_
 | '__/ _ \| '_ \| |/ / | __|
 | | | (_) | |_) |   <| | |_
 |_|  \___/| .__/|_|\_\_|\__|
           |_|

Gadget finder for ROP, JOP and syscall chains
`
	fmt.Fprint(w, logo)
}
