// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package container

import (
	"fmt"

	"github.com/gogpu/dxbc/bitstream"
)

// DebugName is the content of an ILDN part: the name of the external file
// holding the shader's debug info.
type DebugName struct {
	// Flags is reserved and currently always zero.
	Flags uint16

	// Name is the debug info file name, usually a hash-derived .pdb name.
	Name string
}

// ParseDebugName reads an ILDN part's data: flags, a name length and the
// null-terminated name itself.
func ParseDebugName(body []byte) (*DebugName, error) {
	r := bitstream.NewReader(body)
	flags, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	nameLen, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	name, err := r.ReadASCII(int(nameLen))
	if err != nil {
		return nil, fmt.Errorf("debug name of %d bytes: %w", nameLen, err)
	}
	return &DebugName{Flags: flags, Name: name}, nil
}
