package app

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateChoices(t *testing.T) {
	tests := []struct {
		name      string
		values    []string
		allowed   []string
		wantValue string
	}{
		{name: "all valid", values: []string{"np", "hg"}, allowed: []string{"np", "hg"}},
		{name: "empty values", values: nil, allowed: []string{"np"}},
		{name: "first invalid reported", values: []string{"np", "xx", "yy"}, allowed: []string{"np", "hg"}, wantValue: "xx"},
		{name: "case sensitive", values: []string{"total"}, allowed: []string{"Total", "Interval"}, wantValue: "total"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChoices(FlagPoliciesName, tt.values, tt.allowed)
			if tt.wantValue == "" {
				assert.NoError(t, err)
				return
			}
			var cfgErr *ConfigurationError
			if assert.True(t, errors.As(err, &cfgErr)) {
				assert.Equal(t, tt.wantValue, cfgErr.Value)
				assert.Equal(t, FlagPoliciesName, cfgErr.Flag)
				assert.Contains(t, err.Error(), "valid options are")
			}
		})
	}
}
