package convert

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/inframed/inframed/signal"
)

// Registry lines carry a cancer location name and a numeric stage.
const (
	registryLocationSignal = "Cancer_Location"
	registryStageSignal    = "Cancer_Stage"
)

// missingValueError marks a string value absent from its dictionary. The
// line is relevant but neither parsed nor malformed.
type missingValueError struct {
	signal, value string
}

func (e *missingValueError) Error() string {
	return fmt.Sprintf("value %q of %s not in dictionary", e.value, e.signal)
}

// decodeFields fills a record of type t from positional text columns.
func decodeFields(t signal.Type, cols []string, lineNo int64) (signal.Record, error) {
	var rec signal.Record
	kinds := t.Fields()
	if len(cols) < len(kinds) {
		return rec, &DecodeError{Line: lineNo, Field: kinds[len(cols)].String(), Err: fmt.Errorf("%w: missing column", ErrFormat)}
	}
	for i, k := range kinds {
		if err := k.Set(&rec, strings.TrimSpace(cols[i])); err != nil {
			return rec, &DecodeError{Line: lineNo, Field: k.String(), Err: err}
		}
	}
	return rec, nil
}

// decodeStringFields is decodeFields for string data files: the trailing
// column holds a dictionary name that resolve maps to a code.
func decodeStringFields(t signal.Type, name string, cols []string, lineNo int64, resolve func(string) (int32, bool)) (signal.Record, error) {
	var rec signal.Record
	kinds := t.Fields()
	vi := len(kinds) - 1
	if len(cols) < len(kinds) {
		return rec, &DecodeError{Line: lineNo, Field: kinds[len(cols)].String(), Err: fmt.Errorf("%w: missing column", ErrFormat)}
	}
	for i, k := range kinds {
		col := strings.TrimSpace(cols[i])
		if i != vi {
			if err := k.Set(&rec, col); err != nil {
				return rec, &DecodeError{Line: lineNo, Field: k.String(), Err: err}
			}
			continue
		}
		id, ok := resolve(col)
		if !ok {
			return rec, &missingValueError{signal: name, value: col}
		}
		if err := k.SetNumber(&rec, float64(id)); err != nil {
			return rec, &DecodeError{Line: lineNo, Field: k.String(), Err: err}
		}
	}
	return rec, nil
}

// datedRecord builds a record of type t whose date slots come from date and
// whose value slot holds v. Types without a date column keep only the value.
func datedRecord(t signal.Type, date string, v float64, lineNo int64) (signal.Record, error) {
	var rec signal.Record
	vi := t.ValueField()
	for i, k := range t.Fields() {
		var err error
		switch {
		case i == vi:
			err = k.SetNumber(&rec, v)
		case k == signal.FieldDate || k == signal.FieldCompactDate || k == signal.FieldTime:
			err = k.Set(&rec, date)
		}
		if err != nil {
			return rec, &DecodeError{Line: lineNo, Field: k.String(), Err: err}
		}
	}
	return rec, nil
}

// parseStage parses the registry stage column.
func parseStage(s string, lineNo int64) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, &DecodeError{Line: lineNo, Field: "stage", Err: err}
	}
	return v, nil
}
