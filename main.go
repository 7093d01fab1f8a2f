// SPDX-License-Identifier: MIT
// Copyright Authors of Gibson

package main

import (
	"github.com/gibson-sec/ropkit/cmd"
)

func main() {
	cmd.Execute()
}
