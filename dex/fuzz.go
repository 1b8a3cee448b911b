// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dex

// Fuzz is the go-fuzz entrypoint: parse arbitrary bytes and report whether
// they produced an interesting (successfully parsed) corpus sample.
func Fuzz(data []byte) int {
	c, err := Parse(data)
	if err != nil {
		return 0
	}
	if _, err := c.Write(true); err != nil {
		return 0
	}
	return 1
}
