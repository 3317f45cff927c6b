package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/harrison/planflat/internal/cmd"
	"github.com/harrison/planflat/internal/filelock"
	"github.com/harrison/planflat/internal/flatten"
	"github.com/harrison/planflat/internal/plan"
)

func TestExitCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, 0},
		{"plan not found", fmt.Errorf("%w: 7-auth", plan.ErrPlanNotFound), 2},
		{"locked", fmt.Errorf("dump 7-auth: %w", filelock.ErrLocked), 3},
		{"flatten error", flatten.DestinationUnwritable("/tmp/x", errors.New("read-only")), 4},
		{"other", errors.New("boom"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cmd.ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
