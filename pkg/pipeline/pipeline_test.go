package pipeline

import (
	"strings"
	"testing"

	"github.com/matzehuels/isometric/pkg/errors"
	"github.com/matzehuels/isometric/pkg/geometry"
	"github.com/matzehuels/isometric/pkg/raster"
)

func TestOutcomeReason(t *testing.T) {
	tests := []struct {
		name    string
		outcome Outcome
		want    []string
	}{
		{
			name:    "success has no reason",
			outcome: Outcome{Status: StatusSuccess},
		},
		{
			name: "margin miss names the pixel bounds",
			outcome: Outcome{
				Status: StatusOutsideMargin,
				Plan:   geometry.NewPlan(300, 200),
				Final:  raster.Dimensions{Width: 200, Height: 340},
			},
			want: []string{"200x340", "200x315", "±1px x ±2px", "0.5%"},
		},
		{
			// Below 100px the rounded tolerance is zero, so even an exact
			// size misses; the reason must say so.
			name: "zero tolerance on small targets",
			outcome: Outcome{
				Status: StatusOutsideMargin,
				Plan:   geometry.NewPlan(90, 60),
				Final:  raster.Dimensions{Width: 60, Height: 95},
			},
			want: []string{"60x95", "±0px x ±0px", "strictly"},
		},
		{
			name: "failure uses the error message",
			outcome: Outcome{
				Status: StatusFailed,
				Err:    errors.New(errors.ErrCodeBackendParse, "no Geometry field"),
			},
			want: []string{"no Geometry field"},
		},
		{
			name:    "failure without error",
			outcome: Outcome{Status: StatusFailed},
			want:    []string{"failed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.outcome.Reason()
			if len(tt.want) == 0 && got != "" {
				t.Errorf("Reason() = %q, want empty", got)
			}
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("Reason() = %q, missing %q", got, w)
				}
			}
		})
	}
}

func TestResultCounts(t *testing.T) {
	r := &Result{Outcomes: []Outcome{
		{Status: StatusSuccess},
		{Status: StatusSuccess},
		{Status: StatusOutsideMargin},
		{Status: StatusFailed},
	}}
	s, m, f := r.Counts()
	if s != 2 || m != 1 || f != 1 {
		t.Errorf("Counts() = %d, %d, %d, want 2, 1, 1", s, m, f)
	}
}
