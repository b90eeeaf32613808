package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/zappabad/dealsviewer/internal/deal"
)

var ErrUnknownEnvelope = errors.New("unknown envelope type")

// EnvelopeType tags a feed message.
type EnvelopeType string

const (
	EnvelopeBatch  EnvelopeType = "batch"
	EnvelopeLoaded EnvelopeType = "loaded"
)

// WireDeal is the JSON form of a deal.
type WireDeal struct {
	ID         string    `json:"id"`
	Instrument string    `json:"instrument"`
	Price      float64   `json:"price"`
	Amount     float64   `json:"amount"`
	Side       string    `json:"side"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Envelope is one feed message: a batch of deals or the loaded marker.
type Envelope struct {
	Type  EnvelopeType `json:"type"`
	Deals []WireDeal   `json:"deals,omitempty"`
}

// BatchEnvelope wraps deals for the wire.
func BatchEnvelope(batch []deal.Deal) Envelope {
	env := Envelope{Type: EnvelopeBatch, Deals: make([]WireDeal, len(batch))}
	for i, d := range batch {
		env.Deals[i] = WireDeal{
			ID:         d.ID,
			Instrument: d.InstrumentName,
			Price:      d.Price,
			Amount:     d.Amount,
			Side:       d.Side.String(),
			ModifiedAt: d.ModifiedAt.UTC(),
		}
	}
	return env
}

// LoadedEnvelope marks the end of the history.
func LoadedEnvelope() Envelope {
	return Envelope{Type: EnvelopeLoaded}
}

// Encode marshals env.
func Encode(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}

// Decode parses a feed message and validates its type.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	switch env.Type {
	case EnvelopeBatch, EnvelopeLoaded:
		return env, nil
	default:
		return Envelope{}, fmt.Errorf("%w: %q", ErrUnknownEnvelope, env.Type)
	}
}

// Batch converts the envelope's wire deals.
func (e Envelope) Batch() ([]deal.Deal, error) {
	out := make([]deal.Deal, len(e.Deals))
	for i, w := range e.Deals {
		side, err := deal.ParseSide(w.Side)
		if err != nil {
			return nil, fmt.Errorf("deal %s: %w", w.ID, err)
		}
		out[i] = deal.Deal{
			ID:             w.ID,
			InstrumentName: w.Instrument,
			Price:          w.Price,
			Amount:         w.Amount,
			Side:           side,
			ModifiedAt:     w.ModifiedAt,
		}
	}
	return out, nil
}

// Dispatch decodes data and hands the result to onBatch or onLoaded.
func Dispatch(data []byte, onBatch BatchFunc, onLoaded LoadedFunc) error {
	env, err := Decode(data)
	if err != nil {
		return err
	}
	if env.Type == EnvelopeLoaded {
		if onLoaded != nil {
			onLoaded()
		}
		return nil
	}
	batch, err := env.Batch()
	if err != nil {
		return err
	}
	if len(batch) > 0 {
		onBatch(batch)
	}
	return nil
}
