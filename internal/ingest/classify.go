// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package ingest

import (
	"path"
	"regexp"
	"strconv"
	"strings"
)

// FileClass is the file-type variant a source key is classified into.
type FileClass int

const (
	ClassUnknown FileClass = iota
	ClassStandby
	ClassFastpassNew
	ClassFastpassOld
)

func (c FileClass) String() string {
	switch c {
	case ClassStandby:
		return "STANDBY"
	case ClassFastpassNew:
		return "FASTPASS_NEW"
	case ClassFastpassOld:
		return "FASTPASS_OLD"
	default:
		return "UNKNOWN"
	}
}

// legacyFastpassPattern matches the historical dated filename convention
// ("fastpass_1999_07.csv", "fastpass_2013_12.csv"): an underscore-joined
// four-digit year and two-digit month. legacyYearMin/Max bound the
// documented legacy era (1999, when FASTPASS launched, through 2013, the
// year before the new-format export began) — values outside that band are
// not FASTPASS_OLD even if they otherwise match the filename shape.
var legacyFastpassPattern = regexp.MustCompile(`fastpass_(\d{4})_\d{2}\.csv$`)

const (
	legacyYearMin = 1999
	legacyYearMax = 2013
)

// Classify determines a source key's file class from its path.
func Classify(key string) FileClass {
	segments := strings.Split(path.Clean(key), "/")
	if len(segments) < 2 {
		return ClassUnknown
	}
	prefix := segments[len(segments)-2]
	name := segments[len(segments)-1]

	switch prefix {
	case "standby":
		return ClassStandby
	case "fastpass":
		if m := legacyFastpassPattern.FindStringSubmatch(name); m != nil {
			year, err := strconv.Atoi(m[1])
			if err == nil && year >= legacyYearMin && year <= legacyYearMax {
				return ClassFastpassOld
			}
		}
		return ClassFastpassNew
	default:
		return ClassUnknown
	}
}
