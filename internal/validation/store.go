package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lockstepml/lockstep/internal/tensor"
	"github.com/lockstepml/lockstep/internal/tokenizer"
	"github.com/lockstepml/lockstep/pkg/vrf"
)

// Save writes one record file per sequence index into dir, creating the
// directory if absent. Sequence i becomes `<i>.vrf`; records with logits
// write both sections, tokens-only records write the sole tokens section.
func (in *Info) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	for i, rec := range in.records {
		path := filepath.Join(dir, fmt.Sprintf("%d.vrf", i))
		if err := writeVRFRecord(path, rec, in.metaFor(i)); err != nil {
			return fmt.Errorf("writing record %d: %w", i, err)
		}
	}
	return nil
}

// SaveJSON writes interchange files `<i>.json` with the same per-record
// degradation as Save: bare token array without logits, record object with.
func (in *Info) SaveJSON(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	for i, rec := range in.records {
		data, err := encodeJSONRecord(rec)
		if err != nil {
			return fmt.Errorf("encoding record %d: %w", i, err)
		}
		path := filepath.Join(dir, fmt.Sprintf("%d.json", i))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("writing record %d: %w", i, err)
		}
	}
	return nil
}

func (in *Info) metaFor(i int) *vrf.Meta {
	if in.Meta == nil {
		return nil
	}
	m := *in.Meta
	m.BatchIndex = i
	return &m
}

// Load resolves pathPattern into record files and loads the first batchSize
// of them, in lexicographic order, interpreted as kind.
//
// pathPattern may embed a wildcard: everything before the first `*` is the
// directory, everything from it onward the glob pattern. Without a wildcard
// a directory is scanned with the kind's default globs and a plain file is
// the sole input. Zero matches, fewer matches than batchSize, and text kind
// without a tokenizer are configuration errors.
func Load(pathPattern string, kind Kind, batchSize int, tok tokenizer.Tokenizer) (*Info, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	if kind == KindText && tok == nil {
		return nil, ErrTokenizerRequired
	}

	paths, err := resolvePaths(pathPattern, kind)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoValidationFiles, pathPattern)
	}
	if len(paths) < batchSize {
		return nil, fmt.Errorf("%w: %d matched, batch size %d", ErrNotEnoughValidationFiles, len(paths), batchSize)
	}

	sort.Strings(paths)
	paths = paths[:batchSize]

	records := make([]Record, 0, len(paths))
	for _, p := range paths {
		rec, err := loadOne(p, kind, tok)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", p, err)
		}
		records = append(records, rec)
	}
	return NewInfo(records), nil
}

func resolvePaths(pathPattern string, kind Kind) ([]string, error) {
	if idx := strings.IndexByte(pathPattern, '*'); idx >= 0 {
		dir := pathPattern[:idx]
		rest := pathPattern[idx:]
		matches, err := filepath.Glob(filepath.Join(dir, rest))
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pathPattern, err)
		}
		return matches, nil
	}

	st, err := os.Stat(pathPattern)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoValidationFiles, pathPattern)
		}
		return nil, err
	}
	if !st.IsDir() {
		return []string{pathPattern}, nil
	}

	for _, pattern := range defaultGlobs(kind) {
		matches, err := filepath.Glob(filepath.Join(pathPattern, pattern))
		if err != nil {
			return nil, err
		}
		if len(matches) > 0 {
			return matches, nil
		}
	}
	return nil, nil
}

func defaultGlobs(kind Kind) []string {
	if kind == KindText {
		return []string{"*.txt"}
	}
	return []string{"*.vrf", "*.json"}
}

func loadOne(path string, kind Kind, tok tokenizer.Tokenizer) (Record, error) {
	if kind == KindText {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Record{}, err
		}
		ids, err := tokenizer.IDsForPrompt(tok, string(raw))
		if err != nil {
			return Record{}, err
		}
		return Record{Tokens: ids}, nil
	}

	switch ext := filepath.Ext(path); ext {
	case ".vrf":
		return readVRFRecord(path, kind)
	case ".json":
		raw, err := os.ReadFile(path)
		if err != nil {
			return Record{}, err
		}
		return decodeJSONRecord(raw, kind)
	default:
		return Record{}, fmt.Errorf("unsupported record extension %q", ext)
	}
}

func writeVRFRecord(path string, rec Record, meta *vrf.Meta) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	w, err := vrf.NewWriter(f)
	if err != nil {
		return err
	}

	tokens, err := vrf.EncodeTokens(rec.Tokens)
	if err != nil {
		return err
	}
	if err := w.WriteSection(vrf.SectionTokens, 1, tokens); err != nil {
		return err
	}

	if rec.Logits != nil {
		logits, err := vrf.EncodeLogits(rec.Logits.R, rec.Logits.C, matValues(rec.Logits))
		if err != nil {
			return err
		}
		if err := w.WriteSection(vrf.SectionLogits, 1, logits); err != nil {
			return err
		}
	}

	if meta != nil {
		payload, err := vrf.EncodeMeta(*meta)
		if err != nil {
			return err
		}
		if err := w.WriteSection(vrf.SectionMeta, 1, payload); err != nil {
			return err
		}
	}

	return w.Finalise()
}

func readVRFRecord(path string, kind Kind) (Record, error) {
	vf, err := vrf.Open(path)
	if err != nil {
		return Record{}, err
	}
	defer func() { _ = vf.Close() }()

	tokSec := vf.Section(vrf.SectionTokens)
	if tokSec == nil {
		return Record{}, fmt.Errorf("%w: missing tokens section", vrf.ErrCorruptFile)
	}
	tokens, err := vrf.DecodeTokens(vf.SectionData(tokSec))
	if err != nil {
		return Record{}, err
	}
	rec := Record{Tokens: tokens}

	if kind == KindLogits {
		logSec := vf.Section(vrf.SectionLogits)
		if logSec == nil {
			return Record{}, ErrMissingLogits
		}
		rows, cols, vals, err := vrf.DecodeLogits(vf.SectionData(logSec))
		if err != nil {
			return Record{}, err
		}
		m := tensor.NewMatFromData(rows, cols, vals)
		rec.Logits = &m
	}
	return rec, nil
}

// matValues returns the matrix values as one compact row-major slice.
func matValues(m *tensor.Mat) []float32 {
	if m.Stride == m.C && len(m.Data) == m.R*m.C {
		return m.Data
	}
	out := make([]float32, 0, m.R*m.C)
	for i := 0; i < m.R; i++ {
		out = append(out, m.Row(i)...)
	}
	return out
}
