// journal/csv.go
package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

type CSVJournal struct {
	transitions *csv.Writer
	rejections  *csv.Writer
	tf, rf      *os.File
}

func NewCSV(transitionsPath, rejectionsPath string) (*CSVJournal, error) {
	tf, err := os.Create(transitionsPath)
	if err != nil {
		return nil, err
	}
	rf, err := os.Create(rejectionsPath)
	if err != nil {
		return nil, err
	}

	tw := csv.NewWriter(tf)
	rw := csv.NewWriter(rf)

	if err := tw.Write([]string{"id", "at", "from_state", "to_state", "reason", "activations"}); err != nil {
		return nil, err
	}
	if err := rw.Write([]string{"id", "at", "source", "symbol", "code", "detail", "price"}); err != nil {
		return nil, err
	}

	tw.Flush()
	if err := tw.Error(); err != nil {
		return nil, err
	}
	rw.Flush()
	if err := rw.Error(); err != nil {
		return nil, err
	}

	return &CSVJournal{tw, rw, tf, rf}, nil
}

func (j *CSVJournal) RecordTransition(t TransitionRecord) error {
	err := j.transitions.Write([]string{
		t.ID,
		t.At.Format(time.RFC3339Nano),
		t.From,
		t.To,
		t.Reason,
		strconv.Itoa(t.Activations),
	})
	if err != nil {
		return err
	}

	j.transitions.Flush()
	return j.transitions.Error()
}

func (j *CSVJournal) RecordRejection(r RejectionRecord) error {
	err := j.rejections.Write([]string{
		r.ID,
		r.At.Format(time.RFC3339Nano),
		r.Source,
		r.Symbol,
		r.Code,
		r.Detail,
		f(r.Price),
	})
	if err != nil {
		return err
	}

	j.rejections.Flush()
	return j.rejections.Error()
}

func (j *CSVJournal) Close() error {
	j.transitions.Flush()
	if err := j.transitions.Error(); err != nil {
		return err
	}
	j.rejections.Flush()
	if err := j.rejections.Error(); err != nil {
		return err
	}

	if err := j.tf.Close(); err != nil {
		return err
	}
	if err := j.rf.Close(); err != nil {
		return err
	}
	return nil
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
