package main

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/spf13/cast"

	"github.com/robert-malhotra/go-nix/nix"
)

const (
	valueFormat = "%.6f"
	tickSep     = "   "
	// headerGap separates the dimension column of the two comment header
	// lines from the data label and unit.
	headerGap = 7
)

var errRank = errors.New("cannot dump data with more than 3 dimensions")

// axis holds the rendered ticks of one data array dimension.
type axis struct {
	label string
	unit  string
	ticks []string
	// alias is set for range dimensions that take their ticks from the
	// array itself; only the ticks are dumped then.
	alias bool
}

func (ax axis) width() int {
	w := 0
	for _, t := range ax.ticks {
		w = max(w, len(t))
	}
	return w
}

// headerWidth is the column width of the label and unit header lines.
func (ax axis) headerWidth() int {
	return max(ax.width(), len(ax.label), len(ax.unit)) + headerGap
}

func formatFloats(xs []float64) []string {
	out := make([]string, len(xs))
	for i, x := range xs {
		out[i] = fmt.Sprintf(valueFormat, x)
	}
	return out
}

func indexTicks(n int) []string {
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	return formatFloats(xs)
}

// axisOf renders the k-th dimension (counting from 1) of da for an axis
// of n elements. Missing dimensions and dimensions whose ticks cannot be
// read or do not match n fall back to plain indices.
func axisOf(da *nix.DataArray, k, n int) axis {
	d, err := da.Dimension(k)
	if err != nil {
		return axis{ticks: indexTicks(n)}
	}
	ax := axis{label: d.Label(), unit: d.Unit()}
	if rd, ok := d.(*nix.RangeDimension); ok {
		ax.alias = rd.IsAlias()
	}
	if sd, ok := d.(*nix.SetDimension); ok {
		labels, err := sd.Labels()
		if err == nil && len(labels) == n {
			ax.ticks = labels
		}
	} else if xs, err := d.Axis(n, 0); err == nil {
		ax.ticks = formatFloats(xs)
	}
	if len(ax.ticks) != n {
		ax.ticks = indexTicks(n)
	}
	return ax
}

// formatCells renders a flat slice of values as returned by
// DataArray.Read.
func formatCells(v any) ([]string, error) {
	switch s := v.(type) {
	case []string:
		return s, nil
	case []float64:
		return formatFloats(s), nil
	case []bool:
		out := make([]string, len(s))
		for i, b := range s {
			out[i] = fmt.Sprint(b)
		}
		return out, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, fmt.Errorf("cannot dump values of type %T", v)
	}
	xs := make([]float64, rv.Len())
	for i := range xs {
		x, err := cast.ToFloat64E(rv.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		xs[i] = x
	}
	return formatFloats(xs), nil
}

// dumpDataArray writes the header block of da followed by its values in
// the layout matching its rank.
func dumpDataArray(w io.Writer, file string, da *nix.DataArray) error {
	shape := da.Shape()
	if len(shape) == 0 || len(shape) > 3 {
		return fmt.Errorf("%s: %w (rank %d)", da.Path(), errRank, len(shape))
	}
	fmt.Fprintf(w, "# File: %s\n# entity: %s\n# type: %s\n# id: %s\n", file, da.Name(), da.Type(), da.ID())
	fmt.Fprintf(w, "# created at: %s\n# last edited at: %s\n\n", da.CreatedAt(), da.UpdatedAt())

	v, err := da.Read()
	if err != nil {
		return err
	}
	cells, err := formatCells(v)
	if err != nil {
		return fmt.Errorf("%s: %w", da.Path(), err)
	}

	axes := make([]axis, len(shape))
	for k, n := range shape {
		axes[k] = axisOf(da, k+1, n)
	}
	switch len(shape) {
	case 1:
		dumpOneD(w, cells, axes[0], da.Label(), da.Unit())
	case 2:
		dumpTwoD(w, cells, shape[1], axes[0], axes[1], da.Label(), da.Unit())
		io.WriteString(w, "\n\n")
	default:
		dumpThreeD(w, cells, shape, axes, da.Label(), da.Unit())
	}
	return nil
}

func dumpOneD(w io.Writer, cells []string, ax axis, label, unit string) {
	if ax.alias {
		fmt.Fprintf(w, "# %s\n# %s\n", ax.label, ax.unit)
		for _, t := range ax.ticks {
			fmt.Fprintln(w, t)
		}
		io.WriteString(w, "\n\n")
		return
	}
	hw := ax.headerWidth()
	fmt.Fprintf(w, "# %-*s%s\n", hw, ax.label, label)
	fmt.Fprintf(w, "# %-*s%s\n", hw, ax.unit, unit)
	tw := ax.width()
	for i, c := range cells {
		fmt.Fprintf(w, "%-*s%s%s\n", tw, ax.ticks[i], tickSep, c)
	}
	io.WriteString(w, "\n\n")
}

// dumpTwoD writes a row-major matrix with ncol columns. The first line
// after the header holds the ticks of the second dimension.
func dumpTwoD(w io.Writer, cells []string, ncol int, rows, cols axis, label, unit string) {
	fmt.Fprintf(w, "# data label: %s\n# data unit: %s\n\n", label, unit)
	hw := rows.headerWidth()
	fmt.Fprintf(w, "# %-*s%s\n", hw, rows.label, cols.label)
	fmt.Fprintf(w, "# %-*s%s\n", hw, rows.unit, cols.unit)

	cw := cols.width()
	for _, c := range cells {
		cw = max(cw, len(c))
	}
	tw := rows.width()
	line := make([]string, ncol)
	for j, t := range cols.ticks {
		line[j] = fmt.Sprintf("%*s", cw, t)
	}
	fmt.Fprintf(w, "%s%s%s\n", strings.Repeat(" ", tw), tickSep, strings.Join(line, tickSep))
	for i, t := range rows.ticks {
		for j := range line {
			line[j] = fmt.Sprintf("%*s", cw, cells[i*ncol+j])
		}
		fmt.Fprintf(w, "%-*s%s%s\n", tw, t, tickSep, strings.Join(line, tickSep))
	}
}

// dumpThreeD writes one matrix per index of the third dimension.
func dumpThreeD(w io.Writer, cells []string, shape []int, axes []axis, label, unit string) {
	n0, n1, n2 := shape[0], shape[1], shape[2]
	plane := make([]string, n0*n1)
	for k := 0; k < n2; k++ {
		for i := 0; i < n0; i++ {
			for j := 0; j < n1; j++ {
				plane[i*n1+j] = cells[(i*n1+j)*n2+k]
			}
		}
		head := strings.TrimSpace(fmt.Sprintf("%s %s %s", axes[2].label, axes[2].ticks[k], axes[2].unit))
		fmt.Fprintf(w, "# data[:, :, %d]: %s\n", k, head)
		dumpTwoD(w, plane, n1, axes[0], axes[1], label, unit)
		io.WriteString(w, "\n")
	}
	io.WriteString(w, "\n")
}
