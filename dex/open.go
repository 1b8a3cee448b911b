// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package dex

import (
	"os"

	mmap "github.com/edsrzf/mmap-go"
)

// Open memory-maps the file at path and parses it: mmap instead of a read,
// so a multi-megabyte classes.dex from an APK under analysis is never
// copied wholesale into the Go heap. The returned Container does not
// retain the mapping; Parse copies every string, instruction and table
// entry it needs out of data before Open unmaps and closes the file.
func Open(path string) (*Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer data.Unmap()

	return Parse(data)
}
