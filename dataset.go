package cremid

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

//ErrGroupLabels indicates a group-label vector that does not cover 1..J contiguously
var ErrGroupLabels = errors.New("group labels must cover 1..J with no gaps")

//DataSet will store the observation matrix and the group membership of each row
type DataSet struct {
	Y         *mat.Dense // n x p observations
	Groups    []int      // 1-based group label per row
	N         int
	P         int
	J         int
	GroupRows [][]int // row indices belonging to each group, indexed 0..J-1
}

//NewDataSet will validate the inputs and build the per-group row index
func NewDataSet(y *mat.Dense, groups []int) (*DataSet, error) {
	n, p := y.Dims()
	if n == 0 || p == 0 {
		return nil, errors.New("empty data matrix")
	}
	if len(groups) != n {
		return nil, errors.Errorf("group vector length %d does not match %d rows", len(groups), n)
	}
	seen := make(map[int]bool)
	j := 0
	for i, g := range groups {
		if g < 1 {
			return nil, errors.Wrapf(ErrGroupLabels, "row %d has label %d", i, g)
		}
		seen[g] = true
		if g > j {
			j = g
		}
	}
	for g := 1; g <= j; g++ {
		if !seen[g] {
			return nil, errors.Wrapf(ErrGroupLabels, "label %d is missing below max label %d", g, j)
		}
	}
	d := &DataSet{Y: y, Groups: groups, N: n, P: p, J: j}
	d.GroupRows = make([][]int, j)
	for i, g := range groups {
		d.GroupRows[g-1] = append(d.GroupRows[g-1], i)
	}
	return d, nil
}

//Row will return row i of the observation matrix without copying
func (d *DataSet) Row(i int) []float64 {
	return d.Y.RawRowView(i)
}

//ColMeans will calculate the per-column sample mean of the data
func (d *DataSet) ColMeans() []float64 {
	m := make([]float64, d.P)
	col := make([]float64, d.N)
	for j := 0; j < d.P; j++ {
		mat.Col(col, j, d.Y)
		m[j] = stat.Mean(col, nil)
	}
	return m
}

//SampleCovariance will calculate the pooled sample covariance of the data
func (d *DataSet) SampleCovariance() *mat.SymDense {
	cov := mat.NewSymDense(d.P, nil)
	stat.CovarianceMatrix(cov, d.Y, nil)
	return cov
}

//ReadTable will read a delimited text file where each line holds p float
//columns followed by an integer group label in the final column.
func ReadTable(path string) (*DataSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening data file %s", path)
	}
	defer f.Close()
	var rows [][]float64
	var groups []int
	sc := bufio.NewScanner(f)
	ln := 0
	for sc.Scan() {
		ln++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.FieldsFunc(line, func(r rune) bool { return r == ',' || r == '\t' || r == ' ' })
		if len(fields) < 2 {
			return nil, errors.Errorf("line %d: need at least one trait column and a group label", ln)
		}
		row := make([]float64, len(fields)-1)
		for i := 0; i < len(fields)-1; i++ {
			row[i], err = strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d column %d", ln, i+1)
			}
		}
		g, err := strconv.Atoi(fields[len(fields)-1])
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: group label", ln)
		}
		rows = append(rows, row)
		groups = append(groups, g)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	if len(rows) == 0 {
		return nil, errors.Errorf("no observations in %s", path)
	}
	p := len(rows[0])
	y := mat.NewDense(len(rows), p, nil)
	for i, r := range rows {
		if len(r) != p {
			return nil, errors.Errorf("row %d has %d columns, want %d", i+1, len(r), p)
		}
		y.SetRow(i, r)
	}
	return NewDataSet(y, groups)
}
