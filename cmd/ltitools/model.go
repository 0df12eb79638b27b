package main

import (
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"ltitools/ssm"
)

// modelFile is the on-disk YAML shape of a state-space model: row-major
// matrices and an optional sample period (0 or absent means continuous
// time).
type modelFile struct {
	A  [][]float64 `yaml:"a"`
	B  [][]float64 `yaml:"b"`
	C  [][]float64 `yaml:"c"`
	D  [][]float64 `yaml:"d"`
	Ts float64     `yaml:"ts"`
}

func loadModel(path string) (*ssm.StateSpace, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file modelFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	a, err := denseFrom(file.A, "a")
	if err != nil {
		return nil, err
	}
	b, err := denseFrom(file.B, "b")
	if err != nil {
		return nil, err
	}
	c, err := denseFrom(file.C, "c")
	if err != nil {
		return nil, err
	}
	var d *mat.Dense
	if len(file.D) > 0 {
		if d, err = denseFrom(file.D, "d"); err != nil {
			return nil, err
		}
	}
	if file.Ts != 0 {
		return ssm.NewDiscreteStateSpace(a, b, c, d, file.Ts)
	}
	return ssm.NewStateSpace(a, b, c, d)
}

func denseFrom(rows [][]float64, name string) (*mat.Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("matrix %q is empty", name)
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("matrix %q row %d has %d entries, want %d", name, i, len(row), cols)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), cols, data), nil
}
