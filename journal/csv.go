// journal/csv.go
package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

type CSV struct {
	fills     *csv.Writer
	decisions *csv.Writer
	ff, df    *os.File
}

func NewCSV(fillsPath, decisionsPath string) (*CSV, error) {
	ff, err := os.Create(fillsPath)
	if err != nil {
		return nil, err
	}
	df, err := os.Create(decisionsPath)
	if err != nil {
		ff.Close()
		return nil, err
	}

	fw := csv.NewWriter(ff)
	dw := csv.NewWriter(df)

	if err := fw.Write([]string{"trade_id", "pair", "side", "asset_amount", "quote_amount", "price", "realized_pl", "time"}); err != nil {
		return nil, err
	}
	if err := dw.Write([]string{"id", "time", "action", "source", "reasoning", "confidence", "risk_level", "price", "cost_basis"}); err != nil {
		return nil, err
	}

	fw.Flush()
	if err := fw.Error(); err != nil {
		return nil, err
	}
	dw.Flush()
	if err := dw.Error(); err != nil {
		return nil, err
	}

	return &CSV{fw, dw, ff, df}, nil
}

func (j *CSV) RecordFill(r FillRecord) error {
	err := j.fills.Write([]string{
		r.TradeID,
		r.Pair,
		r.Side,
		f(r.AssetAmount),
		f(r.QuoteAmount),
		f(r.Price),
		f(r.RealizedPL),
		r.Time.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	j.fills.Flush()
	return j.fills.Error()
}

func (j *CSV) RecordDecision(r DecisionRecord) error {
	err := j.decisions.Write([]string{
		r.ID,
		r.Time.Format(time.RFC3339),
		r.Action,
		r.Source,
		r.Reasoning,
		f(r.Confidence),
		r.RiskLevel,
		f(r.Price),
		f(r.CostBasis),
	})
	if err != nil {
		return err
	}
	j.decisions.Flush()
	return j.decisions.Error()
}

func (j *CSV) Close() error {
	j.fills.Flush()
	if err := j.fills.Error(); err != nil {
		return err
	}
	j.decisions.Flush()
	if err := j.decisions.Error(); err != nil {
		return err
	}

	if err := j.ff.Close(); err != nil {
		return err
	}
	return j.df.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
