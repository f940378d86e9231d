package main

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/hyperifyio/a11yscan/internal/app"
)

func TestExitCodeMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, exitOK},
		{app.ErrLockHeld, exitLockHeld},
		{fmt.Errorf("wrapped: %w", app.ErrLockHeld), exitLockHeld},
		{app.ErrPartialFailure, exitPartial},
		{app.ErrAllScansFailed, exitFailure},
		{app.ErrNoScans, exitPrereqMissing},
		{fmt.Errorf("load manifest: %w", fs.ErrNotExist), exitPrereqMissing},
		{errors.New("anything else"), exitFailure},
	}
	for _, c := range cases {
		if got := exitCodeFor(c.err); got != c.want {
			t.Errorf("exitCodeFor(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}
