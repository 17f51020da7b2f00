package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/lockstepml/lockstep/pkg/vrf"
)

func main() {
	var (
		showTokens = flag.Int("tokens", 20, "number of token ids to list (0 to skip, -1 for all)")
		showMeta   = flag.Bool("meta", true, "show decoded record metadata")
		dumpJSON   = flag.Bool("json", false, "dump the decoded record as JSON")
	)
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: vrfinspect [--tokens N] [--meta] [--json] <path.vrf>...")
		os.Exit(2)
	}

	exit := 0
	for i, path := range flag.Args() {
		if i > 0 {
			fmt.Println()
		}
		if err := inspect(path, *showTokens, *showMeta, *dumpJSON); err != nil {
			fmt.Fprintf(os.Stderr, "error: %s: %v\n", path, err)
			exit = 1
		}
	}
	os.Exit(exit)
}

type recordJSON struct {
	Tokens []int       `json:"tokens,omitempty"`
	Logits [][]float32 `json:"logits,omitempty"`
	Meta   *vrf.Meta   `json:"meta,omitempty"`
}

func inspect(path string, showTokens int, showMeta, dumpJSON bool) error {
	f, err := vrf.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	fmt.Printf("File: %s\n", path)
	fmt.Printf("VRF v%d.%d | sections=%d | size=%d\n",
		f.Header.Major, f.Header.Minor, f.Header.SectionCount, f.Header.FileSize)
	for _, s := range f.Sections {
		fmt.Printf("  %-8s v%d off=%d size=%d\n",
			sectionName(vrf.SectionType(s.Type)), s.Version, s.Offset, s.Size)
	}

	var record recordJSON

	if s := f.Section(vrf.SectionTokens); s != nil {
		tokens, err := vrf.DecodeTokens(f.SectionData(s))
		if err != nil {
			return fmt.Errorf("decode tokens: %w", err)
		}
		record.Tokens = tokens
		if n := clampCount(showTokens, len(tokens)); n > 0 {
			fmt.Printf("Tokens (%d):", len(tokens))
			for i := 0; i < n; i++ {
				fmt.Printf(" %d", tokens[i])
			}
			if n < len(tokens) {
				fmt.Printf(" ... (%d more)", len(tokens)-n)
			}
			fmt.Println()
		}
	}

	if s := f.Section(vrf.SectionLogits); s != nil {
		rows, cols, vals, err := vrf.DecodeLogits(f.SectionData(s))
		if err != nil {
			return fmt.Errorf("decode logits: %w", err)
		}
		fmt.Printf("Logits: %dx%d\n", rows, cols)
		if dumpJSON {
			record.Logits = make([][]float32, rows)
			for r := 0; r < rows; r++ {
				record.Logits[r] = vals[r*cols : (r+1)*cols]
			}
		}
	}

	if s := f.Section(vrf.SectionMeta); s != nil {
		meta, err := vrf.DecodeMeta(f.SectionData(s))
		if err != nil {
			return fmt.Errorf("decode meta: %w", err)
		}
		record.Meta = &meta
		if showMeta {
			fmt.Printf("Meta: model_id=%s dtype=%s backend=%s batch_index=%d seq_length=%d max_new_tokens=%d\n",
				meta.ModelID, meta.DType, meta.Backend, meta.BatchIndex, meta.SeqLength, meta.MaxNewTokens)
		}
	}

	if dumpJSON {
		out, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		fmt.Println(string(out))
	}
	return nil
}

func clampCount(n, total int) int {
	if n < 0 || n > total {
		return total
	}
	return n
}

func sectionName(t vrf.SectionType) string {
	switch t {
	case vrf.SectionTokens:
		return "tokens"
	case vrf.SectionLogits:
		return "logits"
	case vrf.SectionMeta:
		return "meta"
	}
	return fmt.Sprintf("0x%04x", uint32(t))
}
