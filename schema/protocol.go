// Copyright (c) 2024 Andreas Pokorny
// Distributed under the Boost Software License, Version 1.0.
// (See accompanying file LICENSE_1_0.txt or copy at http://www.boost.org/LICENSE_1_0.txt)

package schema

import "github.com/pkg/errors"

// Protocol is an ordered set of interfaces.
type Protocol struct {
	Name       string
	Interfaces []*Interface
}

// NewProtocol declares a protocol from its constituent interfaces.
// Reordering interfaces here never changes any (interface_id, ordinal)
// pair, since interface ids are a pure function of name and version.
func NewProtocol(name string, interfaces ...*Interface) *Protocol {
	return &Protocol{Name: name, Interfaces: interfaces}
}

// Interface looks up a declared interface by name, panicking if the
// protocol never declared it.
func (p *Protocol) Interface(name string) *Interface {
	for _, iface := range p.Interfaces {
		if iface.Name == name {
			return iface
		}
	}
	panic(errors.Errorf("schema: protocol %q has no interface %q", p.Name, name))
}
