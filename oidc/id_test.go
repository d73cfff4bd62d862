// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		opt        []Option
		wantPrefix string
		wantLen    int
	}{
		{"no-prefix", nil, "", 36},
		{"with-prefix", []Option{WithPrefix("st")}, "st_", 39},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			got, err := NewID(tt.opt...)
			require.NoError(err)
			assert.Len(got, tt.wantLen)
			assert.True(strings.HasPrefix(got, tt.wantPrefix))
		})
	}
}
