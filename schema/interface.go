// Copyright (c) 2024 Andreas Pokorny
// Distributed under the Boost Software License, Version 1.0.
// (See accompanying file LICENSE_1_0.txt or copy at http://www.boost.org/LICENSE_1_0.txt)

// Package schema describes protocols declaratively: named, versioned
// interfaces whose methods and signals get a deterministic
// (interface_id, ordinal) identity. Go has no compile-time variadic
// template lists, so the checks the original performs at compile time
// become eager panics raised while building the schema value itself,
// normally from a package-level var initializer — the nearest Go
// equivalent, since a panic during package init aborts the program
// before main runs.
package schema

import (
	"github.com/pkg/errors"

	"github.com/APokorny/tiny-ipc/wire"
)

// Interface is a named, versioned group of methods and signals. Methods
// and signals share one ordinal space, assigned by declaration order.
type Interface struct {
	Name    string
	Version string
	ID      uint32

	elements []string
}

// NewInterface declares an interface and the names of its elements, in
// declaration order. The returned Interface's ID is fixed: the FNV-1a
// style hash of Name XOR the hash of Version.
func NewInterface(name, version string, elementNames ...string) *Interface {
	seen := make(map[string]struct{}, len(elementNames))
	for _, n := range elementNames {
		if _, dup := seen[n]; dup {
			panic(errors.Errorf("schema: interface %q declares %q twice", name, n))
		}
		seen[n] = struct{}{}
	}
	return &Interface{
		Name:     name,
		Version:  version,
		ID:       wire.InterfaceHash(name, version),
		elements: append([]string(nil), elementNames...),
	}
}

// ordinal resolves an element name to its fixed wire ordinal, panicking
// if the interface never declared it.
func (i *Interface) ordinal(name string) uint16 {
	for idx, n := range i.elements {
		if n == name {
			return uint16(idx)
		}
	}
	panic(errors.Errorf("schema: interface %q(%s) has no element %q", i.Name, i.Version, name))
}
