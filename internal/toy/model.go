// Package toy provides a minimal deterministic language model for tests and
// demos. It is deliberately simplistic: an embedding mixed into a decaying
// running state, projected back to vocab logits. The same seed always yields
// the same weights, so two runs can be compared bit for bit.
package toy

import (
	"fmt"

	"github.com/lockstepml/lockstep/internal/tensor"
)

// stateDecay controls how quickly old context fades from the running state.
// Any value in (0,1) works; it only has to make logits depend on the whole
// prefix rather than the latest token alone.
const stateDecay = 0.875

// LM holds the model weights. It is stateless; per-sequence running state
// lives in Batch.
type LM struct {
	Vocab  int
	Hidden int

	emb  tensor.Mat // [Vocab x Hidden]
	proj tensor.Mat // [Hidden x Vocab]
	bias []float32  // [Vocab]
}

// NewLM constructs a model with the given vocabulary and hidden size. The
// embedding and projection matrices are filled with random values derived
// from the seed; biases are zeroed.
func NewLM(vocab, hidden int, seed int64) *LM {
	m := &LM{
		Vocab:  vocab,
		Hidden: hidden,
		emb:    tensor.NewMat(vocab, hidden),
		proj:   tensor.NewMat(hidden, vocab),
		bias:   make([]float32, vocab),
	}
	tensor.FillRand(&m.emb, seed+11)
	tensor.FillRand(&m.proj, seed+23)
	return m
}

// step mixes tok's embedding into state and returns the logits for the next
// position. Token indices outside [0, Vocab) are reduced modulo Vocab.
func (m *LM) step(state []float32, tok int) []float32 {
	if tok < 0 || tok >= m.Vocab {
		tok = tok % m.Vocab
		if tok < 0 {
			tok += m.Vocab
		}
	}
	embRow := m.emb.Row(tok)
	for i := range state {
		state[i] = state[i]*stateDecay + embRow[i]
	}
	logits := make([]float32, m.Vocab)
	copy(logits, m.bias)
	for i, s := range state {
		if s == 0 {
			continue
		}
		projRow := m.proj.Row(i)
		for j := range logits {
			logits[j] += s * projRow[j]
		}
	}
	return logits
}

// Batch couples one LM with per-sequence running state so a whole batch can
// be decoded through the generation-loop contract. It also enforces an
// optional cache bound set through EnsureCache.
type Batch struct {
	lm     *LM
	states [][]float32

	fed      int
	cacheCap int
}

// NewBatch creates decoding state for batch sequences sharing lm's weights.
func NewBatch(lm *LM, batch int) *Batch {
	b := &Batch{
		lm:     lm,
		states: make([][]float32, batch),
	}
	for i := range b.states {
		b.states[i] = make([]float32, lm.Hidden)
	}
	return b
}

// Forward consumes the newest token column and returns one logits row per
// sequence.
func (b *Batch) Forward(last []int) ([][]float32, error) {
	if len(last) != len(b.states) {
		return nil, fmt.Errorf("toy: token column has %d entries for batch of %d", len(last), len(b.states))
	}
	if b.cacheCap > 0 && b.fed >= b.cacheCap {
		return nil, fmt.Errorf("toy: context length %d exceeds cache capacity %d", b.fed+1, b.cacheCap)
	}
	rows := make([][]float32, len(last))
	for i, tok := range last {
		rows[i] = b.lm.step(b.states[i], tok)
	}
	b.fed++
	return rows, nil
}

// Reset clears all per-sequence state for a fresh run. The cache bound is
// kept; call EnsureCache again to resize it.
func (b *Batch) Reset() {
	for _, s := range b.states {
		for i := range s {
			s[i] = 0
		}
	}
	b.fed = 0
}

// EnsureCache sizes the context window, satisfying the optional cache-sizing
// capability of the generation-loop contract.
func (b *Batch) EnsureCache(maxSeqLen int) error {
	if maxSeqLen <= 0 {
		return fmt.Errorf("toy: cache size must be positive, got %d", maxSeqLen)
	}
	b.cacheCap = maxSeqLen
	return nil
}
