package stats

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"math"

	mstats "github.com/montanaflynn/stats"

	"perfagg/internal/sample"
)

// AloneColumns are the columns added by AddAloneMetrics.
var AloneColumns = []string{"progress", "slowdown", "stp", "antt", "unfairness"}

// AddAloneMetrics adds, for every repetition, the progress and slowdown of
// each application against its stand-alone execution time, given in
// intervals, and the per-repetition stp, antt and unfairness of the whole
// workload. The interval column of a final or total file is the number of
// intervals each application took. Values maps of rows are updated in place.
func AddAloneMetrics(rows []sample.RawRow, alone float64) []string {
	byRep := make(map[int][]int)
	var reps []int
	for i, r := range rows {
		if _, ok := byRep[r.Repetition]; !ok {
			reps = append(reps, r.Repetition)
		}
		byRep[r.Repetition] = append(byRep[r.Repetition], i)
	}
	for _, rep := range reps {
		idx := byRep[rep]
		progress := make([]float64, 0, len(idx))
		slowdown := make([]float64, 0, len(idx))
		for _, i := range idx {
			interval, ok := rows[i].Values[string(sample.KeyInterval)]
			if !ok {
				interval = math.NaN()
			}
			p := alone / interval
			s := interval / alone
			rows[i].Values["progress"] = p
			rows[i].Values["slowdown"] = s
			progress = append(progress, p)
			slowdown = append(slowdown, s)
		}
		stp, antt, unfairness := workloadScores(progress, slowdown)
		for _, i := range idx {
			rows[i].Values["stp"] = stp
			rows[i].Values["antt"] = antt
			rows[i].Values["unfairness"] = unfairness
		}
	}
	return AloneColumns
}

func workloadScores(progress, slowdown []float64) (stp, antt, unfairness float64) {
	stp, err := mstats.Sum(progress)
	if err != nil {
		stp = math.NaN()
	}
	antt, err = mstats.Mean(slowdown)
	if err != nil {
		antt = math.NaN()
	}
	unfairness = math.NaN()
	if len(progress) >= 2 {
		std, errStd := mstats.StandardDeviationSample(progress)
		mean, errMean := mstats.Mean(progress)
		if errStd == nil && errMean == nil {
			unfairness = std / mean
		}
	}
	return stp, antt, unfairness
}
