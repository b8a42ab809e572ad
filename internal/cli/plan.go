package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/isometric/pkg/errors"
	"github.com/matzehuels/isometric/pkg/geometry"
)

// planCommand creates the plan command, which prints the geometry a
// conversion would aim for without writing anything.
func (c *CLI) planCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "plan <image|WxH>",
		Short: "Show the target geometry for an image or a size",
		Long: `Show the target geometry for an image or a size.

The argument is either an existing image, whose size is read through the
configured backend, or a literal size such as 300x200.`,
		Example: `  isometric plan tile.png
  isometric plan 300x200 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer c.closeLog()

			p, err := c.resolvePlan(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(c.out)
				enc.SetIndent("", "  ")
				return enc.Encode(p)
			}
			printPlan(c, p)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the plan as JSON")
	return cmd
}

// resolvePlan computes the plan for arg. An existing file wins over a
// WxH literal of the same name.
func (c *CLI) resolvePlan(ctx context.Context, arg string) (geometry.Plan, error) {
	if _, err := os.Stat(arg); err == nil {
		b, err := c.backend(ctx)
		if err != nil {
			return geometry.Plan{}, err
		}
		dims, err := b.Dimensions(ctx, arg)
		if err != nil {
			return geometry.Plan{}, err
		}
		return geometry.NewPlan(dims.Width, dims.Height), nil
	}

	w, h, err := parseSize(arg)
	if err != nil {
		return geometry.Plan{}, err
	}
	return geometry.NewPlan(w, h), nil
}

var sizePattern = regexp.MustCompile(`^(\d+)x(\d+)$`)

// parseSize parses a WIDTHxHEIGHT literal with positive components.
func parseSize(s string) (width, height int, err error) {
	m := sizePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, errors.New(errors.ErrCodeInputNotFound, "%s is neither an existing image nor a WIDTHxHEIGHT size", s)
	}
	width, errW := strconv.Atoi(m[1])
	height, errH := strconv.Atoi(m[2])
	if errW != nil || errH != nil || width <= 0 || height <= 0 {
		return 0, 0, errors.New(errors.ErrCodeInvalidInput, "invalid size %q: both dimensions must be positive", s)
	}
	return width, height, nil
}

func printPlan(c *CLI, p geometry.Plan) {
	fmt.Fprintln(c.out, StyleTitle.Render("Isometric plan"))
	printKeyValue(c.out, "Source", fmt.Sprintf("%dx%d", p.SourceWidth, p.SourceHeight))
	printKeyValue(c.out, "Resize to", fmt.Sprintf("%dx%d", p.TargetWidth, p.SourceHeight))
	printKeyValue(c.out, "Shear", fmt.Sprintf("%g° (renders %g°)", p.BackendShearAngle, p.ShearAngle))
	printKeyValue(c.out, "Y shear", fmt.Sprintf("%d px", p.YShear))
	printKeyValue(c.out, "Target", fmt.Sprintf("%dx%d", p.TargetWidth, p.TargetHeight))
	printKeyValue(c.out, "Margin", fmt.Sprintf("±%g%%", geometry.DefaultMarginPercent))
}
