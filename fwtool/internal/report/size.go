// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nikolaydubina/go-binsize-treemap/fmtbytecount"
)

// paddedHumanSize formats n with one decimal digit and a binary unit padded
// to three characters, e.g. "1.5 KiB" or "0.0 B  ".
func paddedHumanSize(n uint64) string {
	v, unit := fmtbytecount.ByteCountIEC(uint(n))
	if unit != "B" {
		unit += "iB"
	}
	return fmt.Sprintf("%3.1f %-3s", v, unit)
}

// HumanSize formats n using binary prefixes: 1536 is "1.5 KiB", 0 is "0.0 B".
func HumanSize(n uint64) string {
	return strings.TrimRight(paddedHumanSize(n), " ")
}

func sizeString(n uint64, human bool) string {
	if human {
		return paddedHumanSize(n)
	}
	return strconv.FormatUint(n, 10)
}

func percentString(n, total uint64) string {
	if total == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f", float64(n)/float64(total)*100)
}
