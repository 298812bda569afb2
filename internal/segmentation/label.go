package segmentation

import (
	"fmt"
	"strconv"
	"strings"
)

// displayDateLayout is how date values render inside criterion labels.
const displayDateLayout = "Jan 2, 2006"

// DescribeCriterion renders one criterion as a human-readable description:
// "<field label> <operator phrase> <value label>". Pure and deterministic.
func DescribeCriterion(c Criterion, registry *Registry) string {
	fd, ok := registry.GetField(c.Field)
	if !ok {
		fd = FieldDescriptor{Field: c.Field, Label: c.Field}
	}
	return strings.TrimSpace(fmt.Sprintf("%s %s %s", fd.Label, OperatorPhrase(c.Operator), valueLabel(c, fd)))
}

// DescribeSegment renders every criterion in order, each prefixed with its
// 1-based position for display.
func DescribeSegment(seg Segment, registry *Registry) []string {
	out := make([]string, len(seg.Criteria))
	for i, c := range seg.Criteria {
		out[i] = fmt.Sprintf("%d. %s", i+1, DescribeCriterion(c, registry))
	}
	return out
}

func valueLabel(c Criterion, fd FieldDescriptor) string {
	switch v := c.Value.(type) {
	case SetValue:
		labels := make([]string, len(v.Values))
		for i, raw := range v.Values {
			labels[i] = fd.OptionLabel(raw)
		}
		return strings.Join(labels, ", ")
	case NumericRangeValue:
		return formatNumber(v.Min) + "-" + formatNumber(v.Max)
	case DateRangeValue:
		return v.Min.Format(displayDateLayout) + " - " + v.Max.Format(displayDateLayout)
	case RelativeWindowValue:
		return fmt.Sprintf("%d days", v.Days)
	case ScalarValue:
		if fd.ValueType == TypeDate || fd.ValueType == TypeDateRange {
			if t, err := parseDate(v.Value); err == nil {
				return t.Format(displayDateLayout)
			}
		}
		if fd.ValueType == TypeSelect || fd.ValueType == TypeMultiSelect {
			return fd.OptionLabel(v.Value)
		}
		return v.Value
	}
	return ""
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
