// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package canonical

import (
	"fmt"
	"path/filepath"
	"time"
)

// Bucket identifies one partition: a (park_code, park_date) pair, one file
// per bucket, grouped into calendar-month folders.
type Bucket struct {
	ParkCode string
	ParkDate time.Time // normalized to midnight in the park's zone
}

// BucketOf derives the bucket an observation belongs to.
func BucketOf(o Observation) Bucket {
	return Bucket{ParkCode: o.ParkCode(), ParkDate: o.ParkDate()}
}

// FilePath returns the fact-store path for a bucket under root
// (fact/YYYY-MM/{park}_{YYYY-MM-DD}.csv), or the staging-store path when
// staging is true (staging/live/YYYY-MM/{park}_{YYYY-MM-DD}.csv).
func (b Bucket) FilePath(rootDir string, staging bool) string {
	month := b.ParkDate.Format("2006-01")
	day := b.ParkDate.Format("2006-01-02")
	name := fmt.Sprintf("%s_%s.csv", b.ParkCode, day)
	if staging {
		return filepath.Join(rootDir, "live", month, name)
	}
	return filepath.Join(rootDir, month, name)
}
