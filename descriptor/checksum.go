// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package descriptor

import (
	"fmt"
	"strings"
)

const (
	// checksumInputCharset is the BIP-380 descriptor character set. The
	// position of a character selects its symbol and group.
	checksumInputCharset = "0123456789()[],'/*abcdefgh@:$%{}" +
		"IJKLMNOPQRSTUVWXYZ&+-.;<=>?!^_|~" +
		"ijklmnopqrstuvwxyzABCDEFGH`#\"\\ "

	// checksumCharset is the bech32 character set used for the checksum.
	checksumCharset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

	// checksumLen is the length of a descriptor checksum.
	checksumLen = 8
)

// polymod feeds one 5 bit value into the BCH code of BIP-380.
func polymod(c uint64, val int) uint64 {
	c0 := c >> 35
	c = ((c & 0x7ffffffff) << 5) ^ uint64(val)

	if c0&1 != 0 {
		c ^= 0xf5dee51989
	}
	if c0&2 != 0 {
		c ^= 0xa9fdca3312
	}
	if c0&4 != 0 {
		c ^= 0x1bab10e32d
	}
	if c0&8 != 0 {
		c ^= 0x3706b1677a
	}
	if c0&16 != 0 {
		c ^= 0x644d626ffd
	}

	return c
}

// DescriptorChecksum computes the 8 character checksum of a descriptor
// without its '#' suffix.
func DescriptorChecksum(desc string) (string, error) {
	var (
		c        uint64 = 1
		cls      int
		clsCount int
	)
	for i, ch := range desc {
		pos := strings.IndexRune(checksumInputCharset, ch)
		if pos == -1 {
			return "", fmt.Errorf("%w: %q at position %d",
				ErrInvalidCharacter, ch, i)
		}

		c = polymod(c, pos&31)
		cls = cls*3 + (pos >> 5)
		clsCount++
		if clsCount == 3 {
			c = polymod(c, cls)
			cls, clsCount = 0, 0
		}
	}
	if clsCount > 0 {
		c = polymod(c, cls)
	}
	for i := 0; i < checksumLen; i++ {
		c = polymod(c, 0)
	}
	c ^= 1

	sum := make([]byte, checksumLen)
	for j := 0; j < checksumLen; j++ {
		sum[j] = checksumCharset[(c>>(5*(7-j)))&31]
	}

	return string(sum), nil
}

// AddChecksum returns the descriptor with its checksum appended. Any
// existing checksum is replaced.
func AddChecksum(desc string) (string, error) {
	body := desc
	if i := strings.LastIndexByte(desc, '#'); i != -1 {
		body = desc[:i]
	}

	sum, err := DescriptorChecksum(body)
	if err != nil {
		return "", err
	}

	return body + "#" + sum, nil
}

// splitChecksum validates the checksum suffix, when present, and returns the
// descriptor without it. A missing checksum is an error unless optional.
func splitChecksum(desc string, optional bool) (string, error) {
	i := strings.LastIndexByte(desc, '#')
	if i == -1 {
		if !optional {
			return "", fmt.Errorf("%w: %s", ErrMissingChecksum, desc)
		}

		// The body must still use the descriptor character set.
		if _, err := DescriptorChecksum(desc); err != nil {
			return "", err
		}

		return desc, nil
	}

	body, sum := desc[:i], desc[i+1:]
	if len(sum) != checksumLen {
		return "", fmt.Errorf("%w: expected %d characters, got %q",
			ErrInvalidChecksum, checksumLen, sum)
	}

	want, err := DescriptorChecksum(body)
	if err != nil {
		return "", err
	}
	if sum != want {
		return "", fmt.Errorf("%w: got %s, expected %s",
			ErrInvalidChecksum, sum, want)
	}

	return body, nil
}
