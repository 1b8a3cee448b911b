// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"strings"

	"droidworks/dex"
)

// findMethod locates the first method_id_item in c whose rendered
// signature (Container.MethodSignature) contains sig as a substring, and
// its code_item if it has one (abstract/native methods have none). sig is
// typically a method name ("onCreate") or a class#method fragment
// ("Lcom/example/Main;->onCreate").
func findMethod(c *dex.Container, sig string) (*dex.MethodID, *dex.CodeItem, error) {
	for ci := range c.ClassDefs {
		cd := &c.ClassDefs[ci]
		if cd.ClassData == nil {
			continue
		}
		for _, lists := range [][]dex.EncodedMethod{cd.ClassData.DirectMethods, cd.ClassData.VirtualMethods} {
			for _, em := range lists {
				m, err := em.MethodIdx.Resolve(c)
				if err != nil {
					continue
				}
				full, err := c.MethodSignature(m)
				if err != nil {
					continue
				}
				if !strings.Contains(full, sig) {
					continue
				}
				if em.CodeOff == 0 {
					return m, nil, nil
				}
				return m, c.CodeItems[dex.Offset(em.CodeOff)], nil
			}
		}
	}
	return nil, nil, fmt.Errorf("no method matching %q", sig)
}
