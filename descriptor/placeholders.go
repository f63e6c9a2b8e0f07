// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package descriptor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// Placeholder prefixes.
const (
	KeyPlaceholder      = '@'
	TimelockPlaceholder = '#'
	HashPlaceholder     = '$'
)

var (
	timelockRE = regexp.MustCompile(`(?:older|after)\((\d+)\)`)
	hashRE     = regexp.MustCompile(
		`(?:sha256|hash256|ripemd160|hash160)\(([0-9a-fA-F]{64})\)`,
	)

	placeholderREs = map[byte]*regexp.Regexp{
		KeyPlaceholder:      regexp.MustCompile(`^@(\d|[1-9]\d+)$`),
		TimelockPlaceholder: regexp.MustCompile(`^#(\d|[1-9]\d+)$`),
		HashPlaceholder:     regexp.MustCompile(`^\$(\d|[1-9]\d+)$`),
	}
)

// replaceArgs replaces the argument of every match of re with prefix
// followed by a counter starting at 0.
func replaceArgs(s string, re *regexp.Regexp, prefix byte) string {
	counter := 0

	return re.ReplaceAllStringFunc(s, func(match string) string {
		arg := re.FindStringSubmatch(match)[1]
		ph := string(prefix) + strconv.Itoa(counter)
		counter++

		return strings.Replace(match, arg, ph, 1)
	})
}

// ExpandNonKeyLocks replaces the timelock values of older/after with #0,
// #1, ... and the 64 hex digit hashes of sha256, hash256, ripemd160 and
// hash160 with $0, $1, ... Each prefix has its own counter.
func ExpandNonKeyLocks(descriptorOrMiniscript string) string {
	s := replaceArgs(descriptorOrMiniscript, timelockRE, TimelockPlaceholder)

	return replaceArgs(s, hashRE, HashPlaceholder)
}

// AssertDescriptorPlaceholders checks that every distinct placeholder has
// the prefix followed by a number without leading zeros.
func AssertDescriptorPlaceholders(placeholders []string, prefix byte) error {
	re, ok := placeholderREs[prefix]
	if !ok {
		return fmt.Errorf("%w: unknown prefix %q", ErrInvalidPlaceholder,
			prefix)
	}

	seen := fn.NewSet[string]()
	for _, ph := range placeholders {
		if seen.Contains(ph) {
			continue
		}
		seen.Add(ph)

		if !re.MatchString(ph) {
			return fmt.Errorf("%w: %s", ErrInvalidPlaceholder, ph)
		}
	}

	return nil
}
