// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package ingest

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		key  string
		want FileClass
	}{
		{"mk/standby/2026-06-01.csv", ClassStandby},
		{"mk/fastpass/2026-06-01.csv", ClassFastpassNew},
		{"mk/fastpass/fastpass_2005_07.csv", ClassFastpassOld},
		{"mk/fastpass/fastpass_2020_07.csv", ClassFastpassNew},
		{"mk/other/file.csv", ClassUnknown},
		{"file.csv", ClassUnknown},
	}
	for _, c := range cases {
		if got := Classify(c.key); got != c.want {
			t.Errorf("Classify(%q) = %v, want %v", c.key, got, c.want)
		}
	}
}
