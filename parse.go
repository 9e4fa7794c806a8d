package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// sample is the CLI's concrete axis.Sample: a class ID (index into
// parsedInput.Classes) plus a fixed-length feature vector, matching
// wlattner/rf's convention of parsing labels into a string->int table
// rather than accumulating string labels directly (model.go / forest's
// Classes field).
type sample struct {
	classID int
	x       []float64
}

func (s sample) Label() int          { return s.classID }
func (s sample) Features() []float64 { return s.x }

// parsedInput is everything parseCSV extracts from a labeled CSV: feature
// vectors, class labels (encoded to small integers), the class name
// table, and variable names -- wlattner/rf's parse.go carries the same
// four fields for a regression/classification union type; this CLI only
// ever trains classifiers (spec.md §1), so YReg/isRegression are dropped.
type parsedInput struct {
	Samples  []sample
	Classes  []string
	VarNames []string
}

// parseCSV reads a headerless-or-headed CSV with the class label in
// column 0 and numeric features in the remaining columns, following
// wlattner/rf's parse.go convention of sniffing the first row for a
// header (a row is a header iff none of its feature columns parses as a
// float).
func parseCSV(r io.Reader) (*parsedInput, error) {
	reader := csv.NewReader(r)

	row, err := reader.Read()
	if err != nil {
		return nil, err
	}

	p := &parsedInput{}
	classIdx := map[string]int{}

	varNames, err := parseHeader(row)
	if err == nil {
		p.VarNames = varNames
	} else {
		for i := range row[1:] {
			p.VarNames = append(p.VarNames, fmt.Sprintf("X%d", i+1))
		}
		if err := p.parseRow(row, classIdx); err != nil {
			return nil, err
		}
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if err := p.parseRow(row, classIdx); err != nil {
			return nil, err
		}
	}

	return p, nil
}

func (p *parsedInput) parseRow(row []string, classIdx map[string]int) error {
	x, err := parseFeatureVals(row)
	if err != nil {
		return err
	}

	label := row[0]
	id, ok := classIdx[label]
	if !ok {
		id = len(p.Classes)
		classIdx[label] = id
		p.Classes = append(p.Classes, label)
	}

	p.Samples = append(p.Samples, sample{classID: id, x: x})
	return nil
}

func parseFeatureVals(row []string) ([]float64, error) {
	if len(row) < 2 {
		return nil, errors.New("row needs a label column and at least one feature column")
	}
	x := make([]float64, len(row)-1)
	for i, val := range row[1:] {
		fv, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i+1, err)
		}
		x[i] = fv
	}
	return x, nil
}

// parseHeader reports a row's column names if it looks like a header
// (no feature column parses as a number), matching wlattner/rf's
// parse.go heuristic: a row with any numeric feature column is treated as
// data, not as names.
func parseHeader(row []string) ([]string, error) {
	var names []string
	if len(row) > 1 {
		for _, val := range row[1:] {
			if _, err := strconv.ParseFloat(val, 64); err == nil {
				return nil, errors.New("not a header row")
			}
			names = append(names, val)
		}
	}
	return names, nil
}
