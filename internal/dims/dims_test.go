// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package dims

import (
	"testing"
	"time"
)

func TestFixedEntityDimensionDefaultsFalse(t *testing.T) {
	f := FixedEntityDimension{"mk101": true}
	has, err := f.HasPriorityQueue("mk101")
	if err != nil || !has {
		t.Errorf("mk101: has=%v err=%v, want true,nil", has, err)
	}
	has, err = f.HasPriorityQueue("unknown")
	if err != nil || has {
		t.Errorf("unknown: has=%v err=%v, want false,nil", has, err)
	}
}

func TestFixedParkHoursDimensionMissingDateErrors(t *testing.T) {
	f := FixedParkHoursDimension{}
	_, err := f.Hours("mk", time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	if err == nil {
		t.Fatal("expected error for unconfigured park_code/date")
	}
}
